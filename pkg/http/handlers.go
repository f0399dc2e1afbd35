package http

import (
	"net/http"
	"time"

	"liyu1981.xyz/relay-sync-service/pkg/models"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/iot"
)

type DeviceRequest struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

var deviceRequestSchema = z.Struct(z.Shape{
	"ID":      z.String().Trim(),
	"Address": z.String().Trim().Required(),
	"Name":    z.String().Trim(),
})

func (rs *RestfulServer) CreateDevice(c *gin.Context) {
	var req DeviceRequest
	if err := deviceRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	device, err := rs.Iot.Device.CreateDevice(&models.Device{
		ID:      req.ID,
		Address: req.Address,
		Name:    req.Name,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, device)
}

func (rs *RestfulServer) ListDevices(c *gin.Context) {
	devices, err := rs.Iot.Device.ListDevices()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}

func (rs *RestfulServer) GetDevice(c *gin.Context) {
	device, err := rs.Iot.Device.GetDevice(c.Param("device_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

func (rs *RestfulServer) DeleteDevice(c *gin.Context) {
	deviceID := c.Param("device_id")

	if err := rs.Iot.Device.DeleteDevice(deviceID); err != nil {
		abortWithError(c, err)
		return
	}
	if rs.RateLimiterStore != nil {
		rs.RateLimiterStore.Forget(deviceID)
	}

	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) PullConfig(c *gin.Context) {
	snapshot, err := rs.Iot.Snapshot.BuildSnapshot(c.Param("device_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (rs *RestfulServer) PostHeartbeat(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hb, err := iot.DecodeHeartbeat(raw)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status, err := rs.Iot.Heartbeat.IngestHeartbeat(c.Param("device_id"), hb)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type PolicyRequest struct {
	MinPrice        float64 `json:"minPrice"`
	MaxPrice        float64 `json:"maxPrice"`
	NumCheapest     int     `json:"numCheapest"`
	TimeFrame       string  `json:"timeFrame"`
	ManualOverride  bool    `json:"manualOverride"`
	ManualState     string  `json:"manualState"`
	ReversedControl bool    `json:"reversedControl"`
	FallbackHours   []bool  `json:"fallbackHours"`
}

var policyRequestSchema = z.Struct(z.Shape{
	"MinPrice":        z.Float64(),
	"MaxPrice":        z.Float64().Default(models.DefaultMaxPrice),
	"NumCheapest":     z.Int(),
	"TimeFrame":       z.String().Default(string(models.TimeFrame1Hour)).OneOf([]string{"15min", "30min", "1hour"}),
	"ManualOverride":  z.Bool(),
	"ManualState":     z.String(),
	"ReversedControl": z.Bool(),
	"FallbackHours":   z.Slice(z.Bool()),
})

func (rs *RestfulServer) GetPolicy(c *gin.Context) {
	policy, err := rs.Iot.Policy.GetPolicy(c.Param("device_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (rs *RestfulServer) SavePolicy(c *gin.Context) {
	var req PolicyRequest
	if err := policyRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	policy, err := rs.Iot.Policy.SavePolicy(c.Param("device_id"), &models.Policy{
		MinPrice:        req.MinPrice,
		MaxPrice:        req.MaxPrice,
		NumCheapest:     req.NumCheapest,
		TimeFrame:       models.TimeFrame(req.TimeFrame),
		ManualOverride:  req.ManualOverride,
		ManualState:     models.ManualState(req.ManualState),
		ReversedControl: req.ReversedControl,
		FallbackHours:   req.FallbackHours,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (rs *RestfulServer) GetStatus(c *gin.Context) {
	deviceID := c.Param("device_id")
	if _, err := rs.Iot.Device.GetDevice(deviceID); err != nil {
		abortWithError(c, err)
		return
	}
	status, _ := rs.Iot.Status.Get(deviceID)
	c.JSON(http.StatusOK, status)
}

func (rs *RestfulServer) ListStatus(c *gin.Context) {
	c.JSON(http.StatusOK, rs.Iot.Status.All())
}

type ControlRequest struct {
	Action string `json:"action"`
}

var controlRequestSchema = z.Struct(z.Shape{
	"Action": z.String().Required().OneOf([]string{"on", "off", "clear"}),
})

func (rs *RestfulServer) PostControl(c *gin.Context) {
	var req ControlRequest
	if err := controlRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	deviceID := c.Param("device_id")
	if err := rs.Iot.Control.ManualControl(c.Request.Context(), deviceID, models.ControlAction(req.Action)); err != nil {
		abortWithError(c, err)
		return
	}

	status, _ := rs.Iot.Status.Get(deviceID)
	c.JSON(http.StatusOK, status)
}

func (rs *RestfulServer) PostReconcile(c *gin.Context) {
	result, err := rs.Iot.Control.Reconcile(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (rs *RestfulServer) PostPush(c *gin.Context) {
	if err := rs.Iot.Push.NotifyDevice(c.Request.Context(), c.Param("device_id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (rs *RestfulServer) PostPoll(c *gin.Context) {
	status, err := rs.Iot.Liveness.PollDevice(c.Request.Context(), c.Param("device_id"))
	if err != nil && status == nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type PricePointRequest struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

type PricesRequest struct {
	Prices []PricePointRequest `json:"prices"`
}

var pricesRequestSchema = z.Struct(z.Shape{
	// element keys follow the feed's JSON names
	"Prices": z.Slice(z.Struct(z.Shape{
		"time":  z.Time().Required(),
		"price": z.Float64(),
	})).Required(),
})

// PutPrices replaces the two-day price array delivered by the price feed.
func (rs *RestfulServer) PutPrices(c *gin.Context) {
	var req PricesRequest
	if err := pricesRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	points := common.Mapper(req.Prices, func(p PricePointRequest) models.PricePoint {
		return models.PricePoint{Time: p.Time, Price: p.Price}
	})
	if err := rs.Iot.Prices.Set(points, rs.Iot.Now()); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (rs *RestfulServer) GetPrices(c *gin.Context) {
	points, updatedAt := rs.Iot.Prices.Get()
	c.JSON(http.StatusOK, gin.H{"prices": points, "updatedAt": updatedAt})
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	deviceID := c.Param("device_id")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(deviceID, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
