// Package config provides configuration management for kliharness.
//
// Configuration is loaded from multiple YAML sources and merged in order, with later
// sources overriding earlier ones:
//
//  1. Default configuration (built in)
//  2. User configuration (~/.config/kliharness/config.yaml)
//  3. Project configuration (<root>/.kliharness/config.yaml)
//  4. An explicit file passed with --config
//
// # Configuration Structure
//
//	root: /path/to/work        # config, base and data are derived from it
//	kli: kli
//	tick: 31.25ms
//	readiness:
//	  timeout: 10s
//	  policy: fail             # or ignore
//	  retryInterval: 250ms
//	cleanup:
//	  preserveSentinel: true
//	  sentinel: DO_NOT_DELETE
//	termination:
//	  killAfter: 0s            # 0 waits for exit forever
//	profiles:
//	  - tag: with_witness_pool
//	    probe: true
//	    nodes:
//	      - alias: wan
//	        port: 5642
//
// A profile in a later layer replaces the profile with the same tag.
package config
