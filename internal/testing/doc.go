// Package testing runs kli integration scenarios against local witnesses.
//
// A scenario is a YAML file naming the witness profiles it needs through its tags
// and the kli commands to run once those witnesses answer:
//
//	name: multisig-join
//	tags: [with_witness_pool]
//	steps:
//	  - name: init
//	    command: [kli, init, --name, "{name}", --salt, 0ACDEyMzQ1Njc4OWxtbm9aBc, --nopasscode]
//	    participants: Alice, Bob and Charlie
//	    expand: each
//	  - name: wan oobi
//	    probe: wan
//	  - name: resolve wan
//	    command: [kli, oobi, resolve, --name, "{name}", --oobi, "http://127.0.0.1:5642/oobi/{prefix:wan}/controller"]
//	    participants: Alice, Bob and Charlie
//	    expand: each
//
// Each scenario runs inside orchestrator.Run: its witnesses are started before the
// first step and stopped, and the base directory purged, after the last cleanup
// step. Scenarios run one after another because they share the working area.
//
// Step arguments may use placeholders. {root}, {config_dir}, {base_dir} and
// {data_dir} point into the working area, {name}, {first} and {second} come from
// participant expansion and {prefix:<alias>} is the identifier prefix a node
// reported on its last probe.
package testing
