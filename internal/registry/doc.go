// Package registry provides the central "glue" for the sink module system.
//
// The Registry maps the sink type names used in route configuration files
// (e.g., "console") to the compiled Go code that decodes their arguments and
// opens them. Modules contribute their kinds through Module.Register.
//
// Before a configuration is handed to the route host, Validate checks that
// every leaf action names a registered kind and that its arguments block
// matches the kind's input struct, so typos surface as diagnostics instead
// of build failures.
package registry
