package lifecycle

// SaveOption configures a single save call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	fields    []string
	skipHooks bool
}

func buildSaveOptions(opts []SaveOption) saveOptions {
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithUpdateFields restricts the save to an allow-list of fields. Hooks
// watching a field outside the list are skipped for this call.
func WithUpdateFields(fields ...string) SaveOption {
	return func(o *saveOptions) { o.fields = fields }
}

// WithoutHooks bypasses all hooks for this single save call.
func WithoutHooks() SaveOption {
	return func(o *saveOptions) { o.skipHooks = true }
}
