package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
	"liyu1981.xyz/relay-sync-service/pkg/common"
)

// deviceIDOf finds the device a request is about. Requests are either a bare
// StringValue id or a Struct with a deviceId field.
func deviceIDOf(req any) (string, bool) {
	switch r := req.(type) {
	case *wrapperspb.StringValue:
		return r.GetValue(), true
	case *structpb.Struct:
		v, ok := r.GetFields()["deviceId"]
		if !ok {
			return "", false
		}
		return v.GetStringValue(), true
	case interface{ GetDeviceId() string }:
		return r.GetDeviceId(), true
	}
	return "", false
}

func (i *IOTServer) CreateRateLimitInterceptor(targetMethods []string) grpc.UnaryServerInterceptor {
	targetMethodMap := common.Reducer(targetMethods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if _, ok := targetMethodMap[info.FullMethod]; ok {
			if deviceID, ok := deviceIDOf(req); ok {
				if !i.CheckDeviceLimiter(deviceID) {
					return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
				}
			}
		}

		return handler(ctx, req)
	}
}
