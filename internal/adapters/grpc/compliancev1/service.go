// Package compliancev1 は ComplianceService の gRPC サービス定義です。
// メッセージはすべて google.protobuf.Struct で運び、フィールドは camelCase の JSON 名に従います。
package compliancev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName は完全修飾されたサービス名です。
const ServiceName = "shaho.compliance.v1.ComplianceService"

const (
	MethodClassifyWorkCategory    = "ClassifyWorkCategory"
	MethodCheckEligibility        = "CheckEligibility"
	MethodCreateEmployee          = "CreateEmployee"
	MethodUpdateEmployee          = "UpdateEmployee"
	MethodGetEmployee             = "GetEmployee"
	MethodListEmployees           = "ListEmployees"
	MethodDeleteEmployee          = "DeleteEmployee"
	MethodEvaluateEmployee        = "EvaluateEmployee"
	MethodDetectChanges           = "DetectChanges"
	MethodListChangeHistory       = "ListChangeHistory"
	MethodReconcilePremium        = "ReconcilePremium"
	MethodListUncollectedPremiums = "ListUncollectedPremiums"
	MethodMarkPremiumsResolved    = "MarkPremiumsResolved"
	MethodWatchUnresolvedPremiums = "WatchUnresolvedPremiums"
)

// FullMethod は "/service/method" 形式のメソッド名を返します。
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ComplianceServiceServer は ComplianceService のサーバー実装が満たすインターフェースです。
type ComplianceServiceServer interface {
	ClassifyWorkCategory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckEligibility(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEmployees(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DetectChanges(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListChangeHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReconcilePremium(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUncollectedPremiums(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkPremiumsResolved(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchUnresolvedPremiums(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

type unaryMethod func(ComplianceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ComplianceServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ComplianceServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchUnresolvedPremiumsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ComplianceServiceServer).WatchUnresolvedPremiums(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// ServiceDesc は ComplianceService の grpc.ServiceDesc です。
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ComplianceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodClassifyWorkCategory, Handler: unaryHandler(MethodClassifyWorkCategory, ComplianceServiceServer.ClassifyWorkCategory)},
		{MethodName: MethodCheckEligibility, Handler: unaryHandler(MethodCheckEligibility, ComplianceServiceServer.CheckEligibility)},
		{MethodName: MethodCreateEmployee, Handler: unaryHandler(MethodCreateEmployee, ComplianceServiceServer.CreateEmployee)},
		{MethodName: MethodUpdateEmployee, Handler: unaryHandler(MethodUpdateEmployee, ComplianceServiceServer.UpdateEmployee)},
		{MethodName: MethodGetEmployee, Handler: unaryHandler(MethodGetEmployee, ComplianceServiceServer.GetEmployee)},
		{MethodName: MethodListEmployees, Handler: unaryHandler(MethodListEmployees, ComplianceServiceServer.ListEmployees)},
		{MethodName: MethodDeleteEmployee, Handler: unaryHandler(MethodDeleteEmployee, ComplianceServiceServer.DeleteEmployee)},
		{MethodName: MethodEvaluateEmployee, Handler: unaryHandler(MethodEvaluateEmployee, ComplianceServiceServer.EvaluateEmployee)},
		{MethodName: MethodDetectChanges, Handler: unaryHandler(MethodDetectChanges, ComplianceServiceServer.DetectChanges)},
		{MethodName: MethodListChangeHistory, Handler: unaryHandler(MethodListChangeHistory, ComplianceServiceServer.ListChangeHistory)},
		{MethodName: MethodReconcilePremium, Handler: unaryHandler(MethodReconcilePremium, ComplianceServiceServer.ReconcilePremium)},
		{MethodName: MethodListUncollectedPremiums, Handler: unaryHandler(MethodListUncollectedPremiums, ComplianceServiceServer.ListUncollectedPremiums)},
		{MethodName: MethodMarkPremiumsResolved, Handler: unaryHandler(MethodMarkPremiumsResolved, ComplianceServiceServer.MarkPremiumsResolved)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchUnresolvedPremiums,
			Handler:       watchUnresolvedPremiumsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "shaho/compliance/v1/compliance.proto",
}

// RegisterComplianceServiceServer はサーバーに ComplianceService を登録します。
func RegisterComplianceServiceServer(s grpc.ServiceRegistrar, srv ComplianceServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
