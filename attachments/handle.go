package attachments

import (
	"github.com/yamf-go/op-marker/types"
)

// Handle is handed to evidence-producing code in place of the registry.
// It can only add evidence, and only to the check it was created for.
type Handle struct {
	registry *Registry
	id       types.CheckID
}

// ID returns the check the handle is bound to
func (h Handle) ID() types.CheckID {
	return h.id
}

// Valid reports whether the handle is bound to a registry
func (h Handle) Valid() bool {
	return h.registry != nil
}

// Add records a file as evidence for the bound check
func (h Handle) Add(name, path, mediaType string) bool {
	if h.registry == nil {
		return false
	}
	return h.registry.Add(h.id, types.Attachment{Name: name, Path: path, MediaType: mediaType})
}
