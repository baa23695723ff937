//go:build !linux

package serial

// DefaultDriver is used when Config.Driver is empty.
const DefaultDriver = "tarm"
