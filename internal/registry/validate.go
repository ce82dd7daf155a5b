package registry

import (
	"strconv"
	"strings"

	"github.com/dbgateway/gateway/internal/gwerrors"
)

// Validate applies spec.md §4.3's validation rules to a descriptor,
// returning the first offending field as a *gwerrors.ValidationError, or
// nil if the descriptor is well-formed. disabledFeatures removes fields of
// the shape "server:<field>" from the schema before validation, per
// spec.md §4.3.
func Validate(d Descriptor) error {
	name := strings.TrimSpace(d.Name)
	if len(name) < 1 {
		return gwerrors.NewValidationError("name", "required", "name must be non-empty")
	}

	client := strings.TrimSpace(d.Client)
	if len(client) < 1 {
		return gwerrors.NewValidationError("client", "required", "client must be non-empty")
	}
	if !IsValidClient(client) {
		return gwerrors.NewValidationError("client", "oneOf", "client must be one of: "+strings.Join(ClientKeys(), ", "))
	}

	disabled := disabledFieldSet(client)

	if err := validateAddress(d, disabled); err != nil {
		return err
	}

	if err := validateSSL(d, disabled); err != nil {
		return err
	}

	if d.SSH != nil {
		if err := validateSSH(*d.SSH); err != nil {
			return err
		}
	}

	return nil
}

func validateAddress(d Descriptor, disabled map[string]bool) error {
	hostSuppressed := disabled["server:host"]
	portSuppressed := disabled["server:port"]
	socketSuppressed := disabled["server:socketPath"]

	hasHost := d.Host != ""
	hasPort := d.Port != 0
	hasSocket := d.SocketPath != ""

	if hostSuppressed && portSuppressed {
		// Dialect addresses itself purely by socketPath (e.g. SQLite's
		// database file path); the host/port XOR requirement doesn't apply.
		if !socketSuppressed && !hasSocket {
			return gwerrors.NewValidationError("socketPath", "required", "socketPath is required for this client")
		}
		return nil
	}

	if hasHost != hasPort {
		if hasHost {
			return gwerrors.NewValidationError("port", "required", "port is required when host is set")
		}
		return gwerrors.NewValidationError("host", "required", "host is required when port is set")
	}

	hasAddressPair := hasHost && hasPort
	if hasAddressPair == hasSocket {
		if hasAddressPair && hasSocket {
			return gwerrors.NewValidationError("socketPath", "exclusive", "cannot set both host/port and socketPath")
		}
		return gwerrors.NewValidationError("host", "required", "exactly one of host+port or socketPath is required")
	}

	return nil
}

func validateSSL(d Descriptor, disabled map[string]bool) error {
	if disabled["server:ssl"] {
		return nil
	}
	// ssl is a required bool field; Go's zero value (false) is a valid,
	// explicit choice, so there is nothing further to check here beyond
	// "the field exists in the type" — the JSON decoder already enforces
	// that implicitly. This function exists as the named validation step
	// spec.md §4.3 calls out, kept separate so a future required-presence
	// check (distinguishing "false" from "absent") has a home.
	_ = d.SSL
	return nil
}

func validateSSH(ssh SSHAuth) error {
	if len(ssh.Host) < 1 {
		return gwerrors.NewValidationError("ssh.host", "required", "ssh.host must be non-empty")
	}

	portStr := strconv.Itoa(ssh.Port)
	if len(portStr) < 1 || len(portStr) > 5 {
		return gwerrors.NewValidationError("ssh.port", "length", "ssh.port must be 1-5 digits")
	}

	if len(strings.TrimSpace(ssh.User)) < 1 {
		return gwerrors.NewValidationError("ssh.user", "required", "ssh.user must be non-empty")
	}

	if ssh.Password == "" && ssh.PrivateKey == "" {
		return gwerrors.NewValidationError("ssh", "oneOf", "ssh requires at least one of password or privateKey")
	}

	return nil
}
