// Package config loads runtime settings from the environment and
// competition descriptions from CUE files.
//
// A competition file is checked against the embedded #Competition schema
// (competition.cue) and then for what the schema cannot express: group
// and athlete ids unique across the competition, start numbers unique
// within a group.
package config
