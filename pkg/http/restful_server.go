package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/iot"
)

type RestfulServer struct {
	Server           *gin.Engine
	Iot              *iot.IOT
	RateLimiterStore *iot.RateLimiterStore
}

func (rs *RestfulServer) GetLimiter(deviceID string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(deviceID)
	}
}

func (rs *RestfulServer) CheckDeviceLimiter(deviceID string) bool {
	limiter := rs.GetLimiter(deviceID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(deviceID string, deviceRate float64, deviceBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(deviceID, rate.Limit(deviceRate), deviceBurst)
}

// limited rejects the request with 429 when the device is over its budget.
func (rs *RestfulServer) limited(c *gin.Context) {
	if !rs.CheckDeviceLimiter(c.Param("device_id")) {
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	c.Next()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnknownDevice):
		return http.StatusNotFound
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrPhysicalControl):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrCooldown):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/status", rs.ListStatus)

	rs.Server.PUT("/prices", rs.PutPrices)
	rs.Server.GET("/prices", rs.GetPrices)

	rs.Server.POST("/devices", rs.CreateDevice)
	rs.Server.GET("/devices", rs.ListDevices)

	devices := rs.Server.Group("/devices/:device_id")
	{
		devices.GET("", rs.GetDevice)
		devices.DELETE("", rs.DeleteDevice)
		devices.GET("/config", rs.limited, rs.PullConfig)
		devices.POST("/heartbeat", rs.limited, rs.PostHeartbeat)
		devices.GET("/policy", rs.GetPolicy)
		devices.PUT("/policy", rs.limited, rs.SavePolicy)
		devices.GET("/status", rs.GetStatus)
		devices.POST("/control", rs.limited, rs.PostControl)
		devices.POST("/reconcile", rs.limited, rs.PostReconcile)
		devices.POST("/push", rs.PostPush)
		devices.POST("/poll", rs.PostPoll)
		devices.POST("/limiter", rs.PostLimiter)
	}
}
