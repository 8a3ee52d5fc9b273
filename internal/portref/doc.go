/*
Package portref parses the textual references used on the command line and
in workspace files to address a member of a node: a port or a setting.

The canonical format is `node.member`, e.g. `caesar.shift`. Both segments may
contain letters, digits, `_` and `-`. An assignment appends `=value`:
`caesar.shift=3`.
*/
package portref
