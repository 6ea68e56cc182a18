package config

// Version é sobrescrita no build via -ldflags.
var Version = "dev"
