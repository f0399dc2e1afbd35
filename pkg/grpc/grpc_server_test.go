package grpc

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/db"
	"liyu1981.xyz/relay-sync-service/pkg/iot"
	"liyu1981.xyz/relay-sync-service/pkg/models"
	_ "liyu1981.xyz/relay-sync-service/pkg/testing"

	"liyu1981.xyz/relay-sync-service/pkg/iot/mocks"
)

const bufSize = 1024 * 1024

var limitedMethods = []string{
	MethodGetSnapshot,
	MethodGetStatus,
	MethodManualControl,
	MethodReconcile,
}

func startTestServerWithMocks(t *testing.T, limiterStore *iot.RateLimiterStore, useMockIControl bool) (
	*gomock.Controller,
	*RelayAdminClient,
	*iot.IOT,
	*mocks.MockIDeviceClient,
	*mocks.MockIControl,
) {
	ctrl := gomock.NewController(t)

	listener := bufconn.Listen(bufSize)

	mockClient := mocks.NewMockIDeviceClient(ctrl)
	mockControl := mocks.NewMockIControl(ctrl)

	iotCore := iot.New(*db.GetInstance(db.UseMemorySqliteDialector()), iot.DefaultOptions())
	services := iotCore.DefaultServices()
	if useMockIControl {
		services.Control = mockControl
	}
	// saved policies are not pushed to anyone here
	services.Push = mocks.NewMockIPush(ctrl)
	iotCore.WithServices(services)
	iotCore.WithCollaborators(iot.CollaboratorOpts{DeviceClient: mockClient})

	iotServer := IOTServer{Iot: iotCore, RateLimiterStore: limiterStore}
	interceptor := grpc.UnaryInterceptor(iotServer.CreateRateLimitInterceptor(limitedMethods))
	server := grpc.NewServer(interceptor)
	RegisterRelayAdminServer(server, &iotServer)

	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, s string) (net.Conn, error) {
			return listener.Dial()
		}),
		grpc.WithInsecure(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return ctrl, NewRelayAdminClient(conn), iotCore, mockClient, mockControl
}

func startTestServer(t *testing.T) (*RelayAdminClient, *iot.IOT, *mocks.MockIDeviceClient) {
	_, client, iotCore, mockClient, _ := startTestServerWithMocks(t, nil, false)
	return client, iotCore, mockClient
}

func seedDevice(t *testing.T, i *iot.IOT) *models.Device {
	device, err := i.Device.CreateDevice(&models.Device{ID: uuid.NewString(), Address: "10.1.2.3"})
	require.NoError(t, err)
	return device
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "expected gRPC status error")
	require.Equal(t, code, st.Code(), st.Message())
}

func TestGetSnapshot(t *testing.T) {
	common.SetTestLoggerNop()
	client, iotCore, _ := startTestServer(t)
	device := seedDevice(t, iotCore)

	resp, err := client.GetSnapshot(context.Background(), device.ID)
	require.NoError(t, err)

	m := resp.AsMap()
	assert.Equal(t, device.ID, m["deviceId"])
	assert.Len(t, m["schedule"], models.SlotsPerDay)
	assert.NotZero(t, m["lastUpdated"])
}

func TestGetSnapshot_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()
	client, _, _ := startTestServer(t)

	{
		// empty device id fails validation
		_, err := client.GetSnapshot(context.Background(), "")
		requireCode(t, err, codes.InvalidArgument)
	}

	{
		_, err := client.GetSnapshot(context.Background(), uuid.NewString())
		requireCode(t, err, codes.NotFound)
	}
}

func TestGetStatusAndListDevices(t *testing.T) {
	common.SetTestLoggerNop()
	client, iotCore, _ := startTestServer(t)
	device := seedDevice(t, iotCore)

	_, err := iotCore.Heartbeat.IngestHeartbeat(device.ID, &models.Heartbeat{Uptime: 100, SwitchOn: true, LastPrice: 0.3})
	require.NoError(t, err)

	resp, err := client.GetStatus(context.Background(), device.ID)
	require.NoError(t, err)
	m := resp.AsMap()
	assert.Equal(t, true, m["online"])
	assert.Equal(t, true, m["switchOn"])
	assert.Equal(t, 0.3, m["lastPrice"])

	list, err := client.ListDevices(context.Background())
	require.NoError(t, err)
	found := false
	for _, d := range list.GetFields()["devices"].GetListValue().GetValues() {
		if d.GetStructValue().GetFields()["id"].GetStringValue() == device.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestManualControl(t *testing.T) {
	common.SetTestLoggerNop()
	client, iotCore, mockClient := startTestServer(t)
	device := seedDevice(t, iotCore)

	mockClient.EXPECT().
		ScriptControl(gomock.Any(), gomock.Eq(device.Address), gomock.Eq(models.ControlOff)).
		Return(fmt.Errorf("script missing")).
		Times(1)
	mockClient.EXPECT().
		RPCSetSwitch(gomock.Any(), gomock.Eq(device.Address), gomock.Eq(models.ControlOff)).
		Return(nil).
		Times(1)

	resp, err := client.ManualControl(context.Background(), device.ID, "off")
	require.NoError(t, err)
	assert.Equal(t, false, resp.AsMap()["switchOn"])

	policy, err := iotCore.Policy.GetPolicy(device.ID)
	require.NoError(t, err)
	assert.True(t, policy.ManualOverride)
	assert.Equal(t, models.ManualStateOff, policy.ManualState)
}

func TestManualControl_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	{
		client, iotCore, _ := startTestServer(t)
		device := seedDevice(t, iotCore)

		_, err := client.ManualControl(context.Background(), "", "on")
		requireCode(t, err, codes.InvalidArgument)

		_, err = client.ManualControl(context.Background(), device.ID, "toggle")
		requireCode(t, err, codes.InvalidArgument)
	}

	{
		ctrl, client, _, _, mockControl := startTestServerWithMocks(t, nil, true)
		defer ctrl.Finish()

		deviceID := uuid.NewString()

		// a relay that cannot be reached surfaces as Unavailable
		mockControl.EXPECT().
			ManualControl(gomock.Any(), gomock.Eq(deviceID), gomock.Eq(models.ControlOn)).
			Return(fmt.Errorf("%w: legacy tier: connection refused", common.ErrPhysicalControl)).
			Times(1)

		_, err := client.ManualControl(context.Background(), deviceID, "on")
		requireCode(t, err, codes.Unavailable)
		assert.True(t, strings.Contains(err.Error(), "connection refused"))
	}
}

func TestReconcile(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, client, _, _, mockControl := startTestServerWithMocks(t, nil, true)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	actual := true
	mockControl.EXPECT().
		Reconcile(gomock.Any(), gomock.Eq(deviceID)).
		Return(&models.ReconcileResult{
			DeviceID: deviceID,
			Outcome:  models.ReconcileCorrected,
			Slot:     41,
			Desired:  false,
			Actual:   &actual,
			Tier:     "script",
		}, nil).
		Times(1)

	resp, err := client.Reconcile(context.Background(), deviceID)
	require.NoError(t, err)
	m := resp.AsMap()
	assert.Equal(t, string(models.ReconcileCorrected), m["outcome"])
	assert.Equal(t, float64(41), m["slot"])
	assert.Equal(t, "script", m["tier"])

	mockControl.EXPECT().
		Reconcile(gomock.Any(), gomock.Eq(deviceID)).
		Return(nil, fmt.Errorf("test error")).
		Times(1)
	_, err = client.Reconcile(context.Background(), deviceID)
	requireCode(t, err, codes.Internal)
}

func TestRateLimitInterceptor_GetSnapshot(t *testing.T) {
	common.SetTestLoggerNop()

	limiterStore := iot.NewRateLimiterStore(2, 2) // Allow 2 req/sec per device
	_, client, iotCore, _, _ := startTestServerWithMocks(t, limiterStore, false)
	device := seedDevice(t, iotCore)

	ctx := context.Background()

	// First 2 requests should pass
	for i := range 2 {
		_, err := client.GetSnapshot(ctx, device.ID)
		require.NoError(t, err, "expected request %d to pass", i+1)
	}

	// 3rd request should fail immediately
	_, err := client.GetSnapshot(ctx, device.ID)
	requireCode(t, err, codes.ResourceExhausted)

	// ListDevices is not limited per device
	_, err = client.ListDevices(ctx)
	require.NoError(t, err)

	// increase rate limiter
	resp, err := client.PostLimiter(ctx, device.ID, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, true, resp.AsMap()["success"])

	// Should pass again
	_, err = client.GetSnapshot(ctx, device.ID)
	require.NoError(t, err, "expected request after raising the limit to pass")
}

func TestRateLimitInterceptor_Refill(t *testing.T) {
	common.SetTestLoggerNop()

	limiterStore := iot.NewRateLimiterStore(2, 1)
	_, client, iotCore, _, _ := startTestServerWithMocks(t, limiterStore, false)
	device := seedDevice(t, iotCore)

	ctx := context.Background()
	_, err := client.GetStatus(ctx, device.ID)
	require.NoError(t, err)
	_, err = client.GetStatus(ctx, device.ID)
	requireCode(t, err, codes.ResourceExhausted)

	// Wait for the token bucket to refill
	time.Sleep(600 * time.Millisecond)
	_, err = client.GetStatus(ctx, device.ID)
	require.NoError(t, err)
}

func TestPostLimiter_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	{
		client, _, _ := startTestServer(t)

		// empty DeviceId will fail validation
		_, err := client.PostLimiter(context.Background(), "", 3, 2)
		requireCode(t, err, codes.InvalidArgument)
	}

	{
		client, _, _ := startTestServer(t)
		deviceID := uuid.NewString()

		// default there is no rate limiter so setting a rate has no effect
		r, err := client.PostLimiter(context.Background(), deviceID, 3.0, 2)
		assert.NoError(t, err)
		m := r.AsMap()
		assert.Equal(t, false, m["success"], "expected PostLimiter to fail")
		assert.True(t, strings.Contains(m["message"].(string), "No effect"), "expected PostLimiter to have no effect")
	}
}
