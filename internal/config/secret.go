package config

const redacted = "[REDACTED]"

// Secret holds a credential that must not end up in logs or traces.
// Call Expose to get the raw value.
type Secret string

func (s Secret) Expose() string {
	return string(s)
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}
