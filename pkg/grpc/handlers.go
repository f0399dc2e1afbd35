package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

func validateDeviceID(deviceID *string) z.ZogIssueList {
	var deviceIdValidator = z.String().Min(1).Required()
	return deviceIdValidator.Validate(deviceID)
}

func toGrpcError(err error) error {
	switch {
	case errors.Is(err, common.ErrUnknownDevice):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrPhysicalControl):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, common.ErrCooldown):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// toStruct carries a model over the wire as the same JSON document the REST
// API returns.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func stringField(s *structpb.Struct, name string) string {
	if v, ok := s.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

func (s *IOTServer) GetSnapshot(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	deviceID := req.GetValue()
	if err := validateDeviceID(&deviceID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	snapshot, err := s.Iot.Snapshot.BuildSnapshot(deviceID)
	if err != nil {
		return nil, toGrpcError(err)
	}
	return toStruct(snapshot)
}

func (s *IOTServer) GetStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	deviceID := req.GetValue()
	if err := validateDeviceID(&deviceID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	if _, err := s.Iot.Device.GetDevice(deviceID); err != nil {
		return nil, toGrpcError(err)
	}
	st, _ := s.Iot.Status.Get(deviceID)
	return toStruct(st)
}

func (s *IOTServer) ManualControl(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	deviceID := stringField(req, "deviceId")
	if err := validateDeviceID(&deviceID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	action := stringField(req, "action")
	var actionValidator = z.String().Required().OneOf([]string{"on", "off", "clear"})
	if err := actionValidator.Validate(&action); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	if err := s.Iot.Control.ManualControl(ctx, deviceID, models.ControlAction(action)); err != nil {
		common.GetCategoryLogger(common.LoggerNameGrpcServer, common.LoggerCategoryIOTControl).Warn("Manual control failed",
			zap.String("device_id", deviceID), zap.String("action", action), zap.Error(err))
		return nil, toGrpcError(err)
	}

	st, _ := s.Iot.Status.Get(deviceID)
	return toStruct(st)
}

func (s *IOTServer) Reconcile(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	deviceID := req.GetValue()
	if err := validateDeviceID(&deviceID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	result, err := s.Iot.Control.Reconcile(ctx, deviceID)
	if err != nil {
		return nil, toGrpcError(err)
	}
	return toStruct(result)
}

func (s *IOTServer) ListDevices(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	devices, err := s.Iot.Device.ListDevices()
	if err != nil {
		return nil, toGrpcError(err)
	}
	return toStruct(map[string]any{"devices": devices})
}

func (s *IOTServer) PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	deviceID := stringField(req, "deviceId")
	if err := validateDeviceID(&deviceID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	fields := req.GetFields()
	rateValue, hasRate := fields["rate"]
	burstValue, hasBurst := fields["burst"]
	if !hasRate || !hasBurst {
		return nil, status.Error(codes.InvalidArgument, "validation error: rate and burst are required")
	}
	deviceRate := rateValue.GetNumberValue()
	deviceBurst := int(burstValue.GetNumberValue())

	if s.RateLimiterStore == nil {
		return toStruct(map[string]any{"success": false, "message": "RateLimiterStore is not used. No effect."})
	}

	s.RateLimiterStore.SetLimiter(deviceID, rate.Limit(deviceRate), deviceBurst)
	return toStruct(map[string]any{"success": true, "message": fmt.Sprintf("OK rate=%v burst=%d", deviceRate, deviceBurst)})
}
