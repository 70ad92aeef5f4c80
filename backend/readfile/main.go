// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// readfile decrypts and prints match and team documents from a data
// directory, e.g.
//
//	SK_MASTER_KEY=... readfile -data-dir data -plays matches/game-1.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"

	"github.com/ttbt-io/playbyplay/backend"
)

var (
	dataDir = flag.String("data-dir", "data", "Directory for match and team data")
	plays   = flag.Bool("plays", false, "Print the play-by-play of match files instead of the raw document")
)

func main() {
	flag.Parse()

	var masterKey crypto.MasterKey
	keyFile := filepath.Join(*dataDir, "master.key")
	if passphrase := os.Getenv("SK_MASTER_KEY"); passphrase != "" {
		var err error
		if masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile); err != nil {
			log.Fatalf("Failed to read master key: %v", err)
		}
	} else if _, err := os.Stat(keyFile); err == nil {
		log.Fatalf("%s exists but SK_MASTER_KEY is not set", keyFile)
	}
	store := storage.New(*dataDir, masterKey)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, arg := range flag.Args() {
		arg = strings.TrimPrefix(strings.TrimPrefix(arg, *dataDir), "/")
		fmt.Printf("=========== %s ===========\n", arg)

		if !strings.HasPrefix(arg, "matches/") {
			var t backend.Team
			if err := store.ReadDataFile(arg, &t); err != nil {
				log.Printf("%s: %v", arg, err)
				continue
			}
			if err := enc.Encode(&t); err != nil {
				log.Printf("JSON: %s: %v", arg, err)
			}
			continue
		}

		if strings.HasSuffix(arg, ".meta.json") {
			var meta backend.MatchMetadata
			if err := store.ReadDataFile(arg, &meta); err != nil {
				log.Printf("%s: %v", arg, err)
				continue
			}
			if err := enc.Encode(&meta); err != nil {
				log.Printf("JSON: %s: %v", arg, err)
			}
			continue
		}

		var m backend.Match
		if err := store.ReadDataFile(arg, &m); err != nil {
			log.Printf("%s: %v", arg, err)
			continue
		}
		if !*plays {
			if err := enc.Encode(&m); err != nil {
				log.Printf("JSON: %s: %v", arg, err)
			}
			continue
		}
		fmt.Printf("%s (%s) %d-%d\n\n", m.ID, m.Status, m.State.ScoreTotal.Top, m.State.ScoreTotal.Bottom)
		for _, rec := range m.Plays {
			fmt.Printf("#%d\n%s\n", rec.Seq, backend.Summarize(rec, nil))
		}
		if n := len(m.PendingPitches); n > 0 {
			fmt.Printf("%d pitch(es) of an open plate appearance\n", n)
		}
	}
}
