// Package adminsvc exposes a small gRPC introspection plane over a
// running Context: current phase, rank, world size, and agreed service
// flags. It deliberately avoids a protoc-generated stub package: every
// method trades in the well-known types (structpb.Struct, emptypb.Empty),
// which ship pre-built, correct descriptors inside
// google.golang.org/protobuf itself, so the service can be wired with
// plain Go and a hand-written grpc.ServiceDesc instead of checked-in
// generated code.
package adminsvc

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"pilotcsp.dev/pilot"
)

// Server implements the admin service against a live Context.
type Server struct {
	ctx *pilot.Context
}

// NewServer wraps ctx for introspection. ctx may be queried concurrently
// with the application's own use of it; every accessor Server calls is
// read-only.
func NewServer(ctx *pilot.Context) *Server {
	return &Server{ctx: ctx}
}

// Status reports the Context's current phase, rank, world size, check
// level, and agreed services as a structpb.Struct.
func (s *Server) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	svc := s.ctx.ServicesEnabled()
	return structpb.NewStruct(map[string]any{
		"phase":       s.ctx.Phase().String(),
		"rank":        float64(s.ctx.Rank()),
		"world_size":  float64(s.ctx.WorldSize()),
		"check_level": float64(s.ctx.CheckLevel()),
		"services": map[string]any{
			"calls":    svc.Calls,
			"deadlock": svc.Deadlock,
			"trace":    svc.Trace,
		},
	})
}

// RankFilter is the shape an admin request's payload decodes into via
// mapstructure, the same way the teacher decodes a YAML-origin map into
// its config structs.
type RankFilter struct {
	Ranks []int `mapstructure:"ranks"`
}

// DecodeRankFilter unpacks a request Struct's map representation into a
// RankFilter.
func DecodeRankFilter(req *structpb.Struct) (RankFilter, error) {
	var out RankFilter
	if req == nil {
		return out, nil
	}
	if err := mapstructure.Decode(req.AsMap(), &out); err != nil {
		return out, fmt.Errorf("adminsvc: decode rank filter: %w", err)
	}
	return out, nil
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "pilot.adminsvc.Admin",
	HandlerType: (*adminServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Status",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(emptypb.Empty)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(adminServer).Status(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pilot.adminsvc.Admin/Status"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(adminServer).Status(ctx, req.(*emptypb.Empty))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pilotcsp.dev/pilot/pkg/adminsvc",
}

// adminServer is the narrow interface serviceDesc dispatches against;
// *Server implements it.
type adminServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterAdminServer attaches Server's RPCs to an existing *grpc.Server.
func RegisterAdminServer(gs *grpc.Server, srv *Server) {
	gs.RegisterService(&serviceDesc, srv)
}
