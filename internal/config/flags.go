package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// parseFlags parses all configuration flags from args (normally os.Args[1:]).
//
// Flags:
//
//	-a remote API base URL
//	-d database DSN
//	-l outcome listener address in format [host]:[port]
//	-session-url outcome websocket URL the background worker publishes to
//	-c/-config json file path with configs
//	-hash-key payload signing key
//	-credential-key credential sealing secret
//	-log-file client log file path
//	-request-timeout per-request timeout (e.g., "30s", "1m")
//	-cache-max-age response cache freshness window
//	-quota-bytes storage quota in bytes
//	-quota-threshold usage ratio that triggers cleanup
//	-quota-max-age age after which synced data may be purged
//	-documents-keep number of documents kept by cleanup
//	-documents-bucket S3 bucket documents are fetched from
//	-probe-interval reachability probe interval
//	-reachability-file file written by the host network hook
//	-drain-interval background drain interval
//	-background host the replay worker inside the client process
func parseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("civic-sync", flag.ContinueOnError)

	var listenAddress NetAddress
	var apiAddress, databaseDSN, sessionURL string
	var jsonConfigPath string
	var hashKey, credentialKey, logFile string
	var requestTimeout, cacheMaxAge, quotaMaxAge time.Duration
	var probeInterval, drainInterval time.Duration
	var quotaBytes int64
	var quotaThreshold float64
	var documentsKeep int
	var documentsBucket, reachabilityFile string
	var background bool

	fs.StringVar(&apiAddress, "a", "", "Remote API base URL")
	fs.StringVar(&databaseDSN, "d", "", "Database DSN")
	fs.Var(&listenAddress, "l", "Outcome listener address host:port")
	fs.StringVar(&sessionURL, "session-url", "", "Outcome websocket URL")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&hashKey, "hash-key", "", "Payload signing key")
	fs.StringVar(&credentialKey, "credential-key", "", "Credential sealing secret")
	fs.StringVar(&logFile, "log-file", "", "Log file path")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&cacheMaxAge, "cache-max-age", 0, "Response cache max age")
	fs.Int64Var(&quotaBytes, "quota-bytes", 0, "Storage quota in bytes")
	fs.Float64Var(&quotaThreshold, "quota-threshold", 0, "Usage ratio that triggers cleanup")
	fs.DurationVar(&quotaMaxAge, "quota-max-age", 0, "Age after which synced data may be purged")
	fs.IntVar(&documentsKeep, "documents-keep", 0, "Number of documents kept by cleanup")
	fs.StringVar(&documentsBucket, "documents-bucket", "", "S3 bucket documents are fetched from")
	fs.DurationVar(&probeInterval, "probe-interval", 0, "Reachability probe interval")
	fs.StringVar(&reachabilityFile, "reachability-file", "", "Reachability file written by the host")
	fs.DurationVar(&drainInterval, "drain-interval", 0, "Background drain interval")
	fs.BoolVar(&background, "background", false, "Host the replay worker in-process")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			HashKey:       hashKey,
			CredentialKey: credentialKey,
			LogFile:       logFile,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
			Documents: Documents{
				Keep:   documentsKeep,
				Bucket: documentsBucket,
			},
			Quota: Quota{
				Bytes:     quotaBytes,
				Threshold: quotaThreshold,
				MaxAge:    quotaMaxAge,
			},
		},
		Adapter: Adapter{
			HTTPAddress:    apiAddress,
			RequestTimeout: requestTimeout,
		},
		Cache: Cache{
			MaxAge: cacheMaxAge,
		},
		Workers: Workers{
			ProbeInterval:    probeInterval,
			ReachabilityFile: reachabilityFile,
			DrainInterval:    drainInterval,
			Background:       background,
		},
		Notify: Notify{
			ListenAddress: listenAddress.String(),
			SessionURL:    sessionURL,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
