// Package rpc describes the convgraph.v1.ConversionService gRPC surface and
// the wire documents shared by both transports. Messages travel as
// google.protobuf.Struct values holding the same JSON the HTTP API serves, so
// the service needs no generated code.
package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/convgraph/internal/graph"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/peers"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "convgraph.v1.ConversionService"

// Method names on ServiceName.
const (
	MethodFindConverters    = "FindConverters"
	MethodListRegistrations = "ListRegistrations"
	MethodGetRegistration   = "GetRegistration"
	MethodRegister          = "Register"
	MethodModify            = "Modify"
	MethodUnregister        = "Unregister"
	MethodGetGraph          = "GetGraph"
	MethodListPeers         = "ListPeers"
)

// FullMethod returns the "/service/method" path used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// FindConvertersRequest asks for the chains from In to Out.
type FindConvertersRequest struct {
	In  string `json:"in"`
	Out string `json:"out"`
}

// FindConvertersResponse lists the chains for a format pair.
type FindConvertersResponse struct {
	In     string            `json:"in"`
	Out    string            `json:"out"`
	Chains []model.ChainView `json:"chains"`
}

// ListRegistrationsRequest selects registrations by filter expression.
type ListRegistrationsRequest struct {
	Filter string `json:"filter,omitempty"`
}

// ListRegistrationsResponse lists registrations matching a filter.
type ListRegistrationsResponse struct {
	Registrations []*model.Registration `json:"registrations"`
	Total         int                   `json:"total"`
}

// RegistrationRequest names a single registration.
type RegistrationRequest struct {
	ID string `json:"id"`
}

// GraphResponse is the JSON view of the format graph.
type GraphResponse struct {
	graph.Snapshot
	Stats graph.Stats `json:"stats"`
}

// PeersResponse lists the remote registries this node mirrors.
type PeersResponse struct {
	Mirroring bool          `json:"mirroring"`
	Peers     []peers.Entry `json:"peers"`
}

// ToStruct encodes v through its JSON form.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return structpb.NewStruct(m)
}

// FromStruct decodes s into v through its JSON form. A nil s leaves v untouched.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decoding into %T: %w", v, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding into %T: %w", v, err)
	}
	return nil
}
