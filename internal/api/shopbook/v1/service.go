package shopbookv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "shopbook.v1.AppointmentsService"

	AppointmentsService_CreateAppointment_FullMethodName   = "/" + ServiceName + "/CreateAppointment"
	AppointmentsService_GetAppointment_FullMethodName      = "/" + ServiceName + "/GetAppointment"
	AppointmentsService_ListMyAppointments_FullMethodName  = "/" + ServiceName + "/ListMyAppointments"
	AppointmentsService_ListAllAppointments_FullMethodName = "/" + ServiceName + "/ListAllAppointments"
	AppointmentsService_UpdateAppointment_FullMethodName   = "/" + ServiceName + "/UpdateAppointment"
	AppointmentsService_DeleteAppointment_FullMethodName   = "/" + ServiceName + "/DeleteAppointment"
)

type AppointmentsServiceServer interface {
	CreateAppointment(context.Context, *CreateAppointmentRequest) (*CreateAppointmentResponse, error)
	GetAppointment(context.Context, *GetAppointmentRequest) (*GetAppointmentResponse, error)
	ListMyAppointments(context.Context, *ListMyAppointmentsRequest) (*ListMyAppointmentsResponse, error)
	ListAllAppointments(context.Context, *ListAllAppointmentsRequest) (*ListAllAppointmentsResponse, error)
	UpdateAppointment(context.Context, *UpdateAppointmentRequest) (*UpdateAppointmentResponse, error)
	DeleteAppointment(context.Context, *DeleteAppointmentRequest) (*DeleteAppointmentResponse, error)
}

// UnimplementedAppointmentsServiceServer can be embedded to keep servers
// compiling when methods are added.
type UnimplementedAppointmentsServiceServer struct{}

func (UnimplementedAppointmentsServiceServer) CreateAppointment(context.Context, *CreateAppointmentRequest) (*CreateAppointmentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateAppointment not implemented")
}

func (UnimplementedAppointmentsServiceServer) GetAppointment(context.Context, *GetAppointmentRequest) (*GetAppointmentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAppointment not implemented")
}

func (UnimplementedAppointmentsServiceServer) ListMyAppointments(context.Context, *ListMyAppointmentsRequest) (*ListMyAppointmentsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListMyAppointments not implemented")
}

func (UnimplementedAppointmentsServiceServer) ListAllAppointments(context.Context, *ListAllAppointmentsRequest) (*ListAllAppointmentsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAllAppointments not implemented")
}

func (UnimplementedAppointmentsServiceServer) UpdateAppointment(context.Context, *UpdateAppointmentRequest) (*UpdateAppointmentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateAppointment not implemented")
}

func (UnimplementedAppointmentsServiceServer) DeleteAppointment(context.Context, *DeleteAppointmentRequest) (*DeleteAppointmentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteAppointment not implemented")
}

func RegisterAppointmentsServiceServer(s grpc.ServiceRegistrar, srv AppointmentsServiceServer) {
	s.RegisterService(&AppointmentsService_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc.MethodDesc handler.
func unaryHandler[Req any, Resp any](fullMethod string, call func(AppointmentsServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AppointmentsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AppointmentsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AppointmentsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AppointmentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateAppointment",
			Handler:    unaryHandler(AppointmentsService_CreateAppointment_FullMethodName, AppointmentsServiceServer.CreateAppointment),
		},
		{
			MethodName: "GetAppointment",
			Handler:    unaryHandler(AppointmentsService_GetAppointment_FullMethodName, AppointmentsServiceServer.GetAppointment),
		},
		{
			MethodName: "ListMyAppointments",
			Handler:    unaryHandler(AppointmentsService_ListMyAppointments_FullMethodName, AppointmentsServiceServer.ListMyAppointments),
		},
		{
			MethodName: "ListAllAppointments",
			Handler:    unaryHandler(AppointmentsService_ListAllAppointments_FullMethodName, AppointmentsServiceServer.ListAllAppointments),
		},
		{
			MethodName: "UpdateAppointment",
			Handler:    unaryHandler(AppointmentsService_UpdateAppointment_FullMethodName, AppointmentsServiceServer.UpdateAppointment),
		},
		{
			MethodName: "DeleteAppointment",
			Handler:    unaryHandler(AppointmentsService_DeleteAppointment_FullMethodName, AppointmentsServiceServer.DeleteAppointment),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shopbook/v1/appointments",
}

type AppointmentsServiceClient interface {
	CreateAppointment(ctx context.Context, in *CreateAppointmentRequest, opts ...grpc.CallOption) (*CreateAppointmentResponse, error)
	GetAppointment(ctx context.Context, in *GetAppointmentRequest, opts ...grpc.CallOption) (*GetAppointmentResponse, error)
	ListMyAppointments(ctx context.Context, in *ListMyAppointmentsRequest, opts ...grpc.CallOption) (*ListMyAppointmentsResponse, error)
	ListAllAppointments(ctx context.Context, in *ListAllAppointmentsRequest, opts ...grpc.CallOption) (*ListAllAppointmentsResponse, error)
	UpdateAppointment(ctx context.Context, in *UpdateAppointmentRequest, opts ...grpc.CallOption) (*UpdateAppointmentResponse, error)
	DeleteAppointment(ctx context.Context, in *DeleteAppointmentRequest, opts ...grpc.CallOption) (*DeleteAppointmentResponse, error)
}

type appointmentsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAppointmentsServiceClient(cc grpc.ClientConnInterface) AppointmentsServiceClient {
	return &appointmentsServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *appointmentsServiceClient) CreateAppointment(ctx context.Context, in *CreateAppointmentRequest, opts ...grpc.CallOption) (*CreateAppointmentResponse, error) {
	return invoke[CreateAppointmentResponse](ctx, c.cc, AppointmentsService_CreateAppointment_FullMethodName, in, opts)
}

func (c *appointmentsServiceClient) GetAppointment(ctx context.Context, in *GetAppointmentRequest, opts ...grpc.CallOption) (*GetAppointmentResponse, error) {
	return invoke[GetAppointmentResponse](ctx, c.cc, AppointmentsService_GetAppointment_FullMethodName, in, opts)
}

func (c *appointmentsServiceClient) ListMyAppointments(ctx context.Context, in *ListMyAppointmentsRequest, opts ...grpc.CallOption) (*ListMyAppointmentsResponse, error) {
	return invoke[ListMyAppointmentsResponse](ctx, c.cc, AppointmentsService_ListMyAppointments_FullMethodName, in, opts)
}

func (c *appointmentsServiceClient) ListAllAppointments(ctx context.Context, in *ListAllAppointmentsRequest, opts ...grpc.CallOption) (*ListAllAppointmentsResponse, error) {
	return invoke[ListAllAppointmentsResponse](ctx, c.cc, AppointmentsService_ListAllAppointments_FullMethodName, in, opts)
}

func (c *appointmentsServiceClient) UpdateAppointment(ctx context.Context, in *UpdateAppointmentRequest, opts ...grpc.CallOption) (*UpdateAppointmentResponse, error) {
	return invoke[UpdateAppointmentResponse](ctx, c.cc, AppointmentsService_UpdateAppointment_FullMethodName, in, opts)
}

func (c *appointmentsServiceClient) DeleteAppointment(ctx context.Context, in *DeleteAppointmentRequest, opts ...grpc.CallOption) (*DeleteAppointmentResponse, error) {
	return invoke[DeleteAppointmentResponse](ctx, c.cc, AppointmentsService_DeleteAppointment_FullMethodName, in, opts)
}
