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

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/joho/godotenv"

	"github.com/ttbt-io/playbyplay/backend"
)

var (
	addr          = flag.String("addr", ":8080", "The TCP address to listen to")
	debugMode     = flag.Bool("debug", false, "Enable debug mode")
	dataDir       = flag.String("data-dir", "data", "Directory for match and team data")
	tlsCert       = flag.String("tls-cert", "", "Path to main HTTP TLS certificate")
	tlsKey        = flag.String("tls-key", "", "Path to main HTTP TLS key")
	flushInterval = flag.Duration("flush-interval", 30*time.Second, "How often in-progress pitches are written to disk")
	rosterCache   = flag.Int("roster-cache", 1024, "Number of player display names kept in memory")
	archiveBucket = flag.String("archive-bucket", "", "S3 bucket receiving finished matches (default $SK_ARCHIVE_BUCKET)")
	archiveRegion = flag.String("archive-region", "", "Region of the archive bucket (default $AWS_REGION or auto)")
	archiveURL    = flag.String("archive-endpoint", "", "Custom S3 endpoint for the archive bucket (default $SK_ARCHIVE_ENDPOINT)")
	archivePrefix = flag.String("archive-prefix", "", "Key prefix for archived matches")
)

func envDefault(v *string, key string) {
	if *v == "" {
		*v = os.Getenv(key)
	}
}

// main starts the web server and registers the API handlers.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	flag.Parse()
	envDefault(archiveBucket, "SK_ARCHIVE_BUCKET")
	envDefault(archiveURL, "SK_ARCHIVE_ENDPOINT")
	envDefault(archiveRegion, "AWS_REGION")

	var mainTLSCert *tls.Certificate
	if *tlsCert != "" && *tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(*tlsCert, *tlsKey)
		if err != nil {
			log.Fatalf("Failed to load main TLS cert/key: %v", err)
		}
		mainTLSCert = &cert
	}

	// Initialize Encryption Key and Storage
	var masterKey crypto.MasterKey
	keyFile := filepath.Join(*dataDir, "master.key")
	if passphrase := os.Getenv("SK_MASTER_KEY"); passphrase != "" {
		// Ensure data dir exists for key file
		os.MkdirAll(*dataDir, 0755)

		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if err != nil {
			if os.IsNotExist(err) {
				log.Println("Initializing new master encryption key...")
				masterKey, err = crypto.CreateMasterKey()
				if err != nil {
					log.Fatalf("Failed to create master key: %v", err)
				}
				if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
					log.Fatalf("Failed to save master key: %v", err)
				}
			} else {
				log.Fatalf("Failed to read master key: %v", err)
			}
		} else {
			log.Println("Loaded master encryption key.")
		}
	} else {
		if _, err := os.Stat(keyFile); err == nil {
			log.Fatalf("Critical Security Error: %s exists but SK_MASTER_KEY is not set. Refusing to start in unencrypted mode to prevent data corruption or exposure.", keyFile)
		}
		log.Println("Warning: No SK_MASTER_KEY provided. Data will be stored UNENCRYPTED.")
	}

	store := storage.New(*dataDir, masterKey)
	store.EnableCompression(true)

	var archiver backend.Archiver
	if *archiveBucket != "" {
		a, err := backend.NewS3Archiver(context.Background(), backend.S3ArchiverConfig{
			Bucket:          *archiveBucket,
			Region:          *archiveRegion,
			Endpoint:        *archiveURL,
			Prefix:          *archivePrefix,
			AccessKeyID:     os.Getenv("SK_ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("SK_ARCHIVE_SECRET_ACCESS_KEY"),
		})
		if err != nil {
			log.Fatalf("Failed to configure archive: %v", err)
		}
		archiver = a
		log.Printf("Finished matches will be archived to bucket %s", *archiveBucket)
	}

	server, err := backend.StartServer(backend.Options{
		Addr:            *addr,
		Cert:            mainTLSCert,
		DataDir:         *dataDir,
		Debug:           *debugMode,
		Storage:         store,
		FlushInterval:   *flushInterval,
		Archiver:        archiver,
		RosterCacheSize: *rosterCache,
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	} else {
		log.Println("Gracefully stopped.")
	}
}
