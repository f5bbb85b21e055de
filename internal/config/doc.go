// Package config defines the format-agnostic route configuration model:
// action configurations, the declarative meta-operations applied to a
// route's action set, and the route definitions that carry them.
//
// The model is the single source of truth for the `resolver` package.
// Concrete loaders, such as the HCL one, are provided in separate packages.
// Values of the model are immutable once handed to a resolver.
package config
