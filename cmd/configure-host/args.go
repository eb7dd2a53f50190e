package main

import (
	"fmt"

	"github.com/danmuck/hostctl/internal/reconcile"
)

const usage = `usage: configure-host [-verbose] [-name hostname] [-ip ipv4] [-hostentry name ipv4]...
`

type options struct {
	verbose bool
	target  reconcile.Target
}

// parseArgs scans the fixed flag set. Unrecognized tokens are returned, not
// rejected, so older orchestration wrappers passing extra words keep working.
func parseArgs(args []string) (options, []string, error) {
	var opts options
	var skipped []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-verbose":
			opts.verbose = true
		case "-name":
			if i+1 >= len(args) {
				return options{}, nil, fmt.Errorf("-name requires a hostname")
			}
			opts.target.Hostname = args[i+1]
			i++
		case "-ip":
			if i+1 >= len(args) {
				return options{}, nil, fmt.Errorf("-ip requires an address")
			}
			opts.target.PrimaryIP = args[i+1]
			i++
		case "-hostentry":
			if i+2 >= len(args) {
				return options{}, nil, fmt.Errorf("-hostentry requires a name and an address")
			}
			opts.target.HostEntries = append(opts.target.HostEntries, reconcile.HostEntry{
				Name: args[i+1],
				IP:   args[i+2],
			})
			i += 2
		default:
			skipped = append(skipped, args[i])
		}
	}
	return opts, skipped, nil
}
