package types

// Version is the canonical project version.
// The CLI and the session layer share this version; `prospect version`
// reports it together with the build commit.
const Version = "0.1.0"
