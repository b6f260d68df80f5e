//go:build ignore

// smoke-rpc.go exercises a running caplink server end to end: it opens a
// session, walks every advertised capability, and prints a pass/fail
// report. Useful after deploying a new capability set.
//
// Run with: go run scripts/smoke-rpc.go [-server http://localhost:8000]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caplink-proto/caplink/pkg/client"
)

type check struct {
	name string
	err  error
	took time.Duration
}

func run(name string, checks *[]check, fn func() error) {
	start := time.Now()
	err := fn()
	*checks = append(*checks, check{name: name, err: err, took: time.Since(start)})
}

func main() {
	server := flag.String("server", "http://localhost:8000", "caplink server base URL")
	timeout := flag.Duration("timeout", 10*time.Second, "per-call timeout")
	flag.Parse()

	ctx := context.Background()
	c := client.New(*server, client.WithCallTimeout(*timeout))

	hs, err := c.Connect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot connect to %s: %v\n", *server, err)
		os.Exit(1)
	}
	defer c.Close(ctx)

	fmt.Printf("connected to %s %s (protocol %s, session %s)\n\n",
		hs.ServerInfo.Name, hs.ServerInfo.Version, hs.ProtocolVersion, hs.SessionID)

	var checks []check

	run("list actions", &checks, func() error {
		actions, err := c.ListActions(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  %d actions advertised\n", len(actions))
		return nil
	})

	run("list resources + read each fixed template", &checks, func() error {
		resources, err := c.ListResources(ctx)
		if err != nil {
			return err
		}
		read := 0
		for _, r := range resources {
			// Templates with placeholders need caller-supplied values;
			// only the fully literal ones can be probed blind.
			if strings.Contains(r.URITemplate, "{") {
				continue
			}
			raw, err := c.ReadResource(ctx, r.URITemplate)
			if err != nil {
				return fmt.Errorf("%s: %w", r.URITemplate, err)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("%s: non-JSON payload", r.URITemplate)
			}
			read++
		}
		fmt.Printf("  %d resource templates, %d literal ones read\n", len(resources), read)
		return nil
	})

	run("list prompts", &checks, func() error {
		prompts, err := c.ListPrompts(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  %d prompts advertised\n", len(prompts))
		return nil
	})

	run("unknown action reports unknown_action", &checks, func() error {
		_, err := c.CallAction(ctx, "definitely-not-registered", nil)
		if err == nil {
			return fmt.Errorf("call unexpectedly succeeded")
		}
		if !strings.HasPrefix(err.Error(), "unknown_action:") {
			return fmt.Errorf("wrong error kind: %v", err)
		}
		return nil
	})

	run("unmatched uri reports resource_not_found", &checks, func() error {
		_, err := c.ReadResource(ctx, "nope://missing")
		if err == nil {
			return fmt.Errorf("read unexpectedly succeeded")
		}
		if !strings.HasPrefix(err.Error(), "resource_not_found:") {
			return fmt.Errorf("wrong error kind: %v", err)
		}
		return nil
	})

	fmt.Println()
	failed := 0
	for _, ck := range checks {
		mark := "ok  "
		if ck.err != nil {
			mark = "FAIL"
			failed++
		}
		fmt.Printf("  [%s] %-45s %6dms\n", mark, ck.name, ck.took.Milliseconds())
		if ck.err != nil {
			fmt.Printf("         %v\n", ck.err)
		}
	}

	fmt.Printf("\n%d checks, %d failed\n", len(checks), failed)
	if failed > 0 {
		os.Exit(1)
	}
}
