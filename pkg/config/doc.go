// Package config loads the YAML configuration file for an indexdb
// store: store location, environment sizing, and logging options. The
// indexdb CLI does not read it; its commands take these settings as
// flags.
package config
