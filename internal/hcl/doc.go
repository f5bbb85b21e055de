// Package hcl provides the HCL implementation of config.Loader. It parses
// route files and translates their blocks into the format-agnostic model of
// the config package, keeping the source order of meta-operations.
//
// Leaf `arguments` blocks are not decoded here. They are handed to the model
// as raw bodies and decoded by the sink factory against the input struct of
// the sink kind they name.
package hcl
