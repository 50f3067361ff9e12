// Package main generates a Certificate Authority (CA), a server certificate
// and a sample client certificate for GophNotes.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/atinyakov/GophNotes/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	client := flag.String("client", "alice", "common name of the sample client certificate, empty to skip")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ","), *client); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// run writes ca, server and optional client pairs into dir.
func run(dir string, hosts []string, client string) error {
	ca, err := certgen.NewAuthority("GophNotes CA", 10*365*24*time.Hour)
	if err != nil {
		return err
	}
	if err := ca.WriteCA(dir); err != nil {
		return err
	}

	for i := range hosts {
		hosts[i] = strings.TrimSpace(hosts[i])
	}
	certPEM, keyPEM, err := ca.IssueServerCertificate(hosts, 365*24*time.Hour)
	if err != nil {
		return fmt.Errorf("server certificate: %w", err)
	}
	if err := certgen.WritePair(dir, certgen.ServerCertFile, certgen.ServerKeyFile, certPEM, keyPEM); err != nil {
		return err
	}

	if client == "" {
		return nil
	}
	certPEM, keyPEM, err = ca.IssueClientCertificate(client)
	if err != nil {
		return fmt.Errorf("client certificate: %w", err)
	}
	return certgen.WritePair(dir, certgen.ClientCertFile, certgen.ClientKeyFile, certPEM, keyPEM)
}
