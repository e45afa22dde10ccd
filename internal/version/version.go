package version

// Version is the current version of the nodecall CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/vishwas-11/nodecall/internal/version.Version=v1.0.0'"
var Version = "dev"
