package workflow

import (
	"errors"
	"fmt"

	"github.com/BaSui01/lmgateway/llm"
)

var (
	// ErrDuplicateNode is returned when a node type name is registered twice.
	ErrDuplicateNode = errors.New("node type already registered")

	// ErrUnknownNodeType is returned when a node references an unregistered type.
	ErrUnknownNodeType = errors.New("unknown node type")
)

// FunctionalityConfigurationNode marks errors raised by sub-nodes that only
// configure another node (models, memories, tools).
const FunctionalityConfigurationNode = "configuration-node"

// ParameterError reports a node parameter that could not be resolved.
type ParameterError struct {
	Node      string
	Parameter string
	ItemIndex int
	Reason    string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("node %q: parameter %q (item %d): %s", e.Node, e.Parameter, e.ItemIndex, e.Reason)
}

// NodeAPIError is a failure of an external API call attributed to a node.
type NodeAPIError struct {
	Node          string
	Functionality string
	HTTPCode      int
	Message       string
	Description   string
	Cause         error
}

// NodeAPIErrorOption customizes NewNodeAPIError.
type NodeAPIErrorOption func(*NodeAPIError)

// WithFunctionality sets the functionality tag.
func WithFunctionality(f string) NodeAPIErrorOption {
	return func(e *NodeAPIError) { e.Functionality = f }
}

// WithDescription sets a longer human-readable description.
func WithDescription(d string) NodeAPIErrorOption {
	return func(e *NodeAPIError) { e.Description = d }
}

// NewNodeAPIError wraps cause. HTTP status and message are taken from an
// *llm.Error in the chain when there is one.
func NewNodeAPIError(node *Node, cause error, opts ...NodeAPIErrorOption) *NodeAPIError {
	e := &NodeAPIError{Cause: cause}
	if node != nil {
		e.Node = node.Name
	}
	if cause != nil {
		e.Message = cause.Error()
	}
	if le, ok := llm.AsError(cause); ok {
		e.HTTPCode = le.HTTPStatus
		e.Message = le.Message
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *NodeAPIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.HTTPCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.HTTPCode)
	}
	if e.Node == "" {
		return msg
	}
	return fmt.Sprintf("node %q: %s", e.Node, msg)
}

func (e *NodeAPIError) Unwrap() error { return e.Cause }
