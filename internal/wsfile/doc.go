// Package wsfile loads workspace files written in HCL and builds them into a
// workspace.
//
// A workspace file declares nodes, the connections between their ports and
// values preset on input ports:
//
//	node "constant" "greeting" {
//	  position = [0, 0]
//	  settings {
//	    value = "hello"
//	  }
//	}
//
//	node "caesar" "cipher" {
//	  settings {
//	    shift = 3
//	  }
//	}
//
//	connect {
//	  from = "greeting.out"
//	  to   = "cipher.in"
//	}
//
//	input "cipher.in" {
//	  value = "seed"
//	}
//
// A directory is loaded by merging every .hcl file found under it.
package wsfile
