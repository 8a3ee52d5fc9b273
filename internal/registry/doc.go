// Package registry maps component type names to the compiled Go factories
// that build them.
//
// Modules register their components at startup. Before any workspace is
// built the registry is validated: every factory is instantiated once and its
// port and setting declarations are checked, so that a broken component is
// reported at startup instead of on first use.
package registry
