package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"liyu1981.xyz/relay-sync-service/pkg/agent"
	iotGrpc "liyu1981.xyz/relay-sync-service/pkg/grpc"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

var maxDevices int = 1000
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

var grpcClient *iotGrpc.RelayAdminClient

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

func main() {
	deviceIDs := make([]string, maxDevices)
	for i := range maxDevices {
		deviceIDs[i] = uuid.NewString()
	}
	fmt.Printf("generated %v device IDs\n", maxDevices)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	conn, err := grpc.Dial(grpcHostPort, grpc.WithInsecure())
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = iotGrpc.NewRelayAdminClient(conn)

	fmt.Printf("gRPC server verified and connected\n")

	putPrices()
	fmt.Printf("prices pushed\n")

	var startTime time.Time
	var usedTime time.Duration

	startTime = time.Now()
	wg := sync.WaitGroup{}
	for i := range maxDevices {
		wg.Add(1)
		go func() {
			registerDevice(deviceIDs[i], i)
			fmt.Printf("\rregistered device %v", i)
			wg.Done()
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\rregistered %v devices: used time=%v seconds, throughput=%v action/second\n",
		maxDevices, usedTime.Seconds(), float64(maxDevices)/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range maxDevices {
		wg.Add(1)
		go func() {
			doAction(deviceIDs[i])
			wg.Done()
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v devices: used time=%v seconds, throughput=%v action/second\n",
		maxDevices, usedTime.Seconds(), float64(maxDevices*3)/usedTime.Seconds(),
	)
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := float64(math.Pow10(decimal))
	return float64(math.Round(float64(val)*float64(multiplier))) / multiplier
}

func postJSON(method, path string, payload any) (*http.Response, error) {
	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequest(method, fmt.Sprintf("http://%s%s", httpHostPort, path), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func putPrices() {
	start := time.Now().UTC().Truncate(24 * time.Hour)
	points := make([]models.PricePoint, models.PriceArrayLen)
	for i := range points {
		points[i] = models.PricePoint{Time: start.Add(time.Duration(i) * 15 * time.Minute), Price: rndFloat64(0.01, 0.5, 4)}
	}
	resp, err := postJSON(http.MethodPut, "/prices", map[string]any{"prices": points})
	if err != nil {
		log.Fatal("Failed to push prices:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("price push rejected: %v", resp.Status)
	}
}

func registerDevice(deviceID string, n int) {
	// addresses are never dialled unless a push or poll runs
	resp, err := postJSON(http.MethodPost, "/devices", map[string]string{
		"id":      deviceID,
		"address": fmt.Sprintf("10.%d.%d.%d", (n/62500)%250, (n/250)%250, n%250+1),
		"name":    fmt.Sprintf("bench-%d", n),
	})
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		panic(fmt.Sprintf("register %s: %v", deviceID, resp.Status))
	}
}

func doAction(deviceID string) {
	coord := agent.NewCoordinatorClient("http://"+httpHostPort, deviceID, 5*time.Second)

	actions := []func(){
		genPullAction(coord, deviceID),
		genHeartbeatAction(coord),
		genSavePolicyAction(deviceID),
	}
	actionNames := []string{
		"PullSnapshot",
		"Heartbeat",
		"SavePolicy",
	}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
		actionNames[i], actionNames[j] = actionNames[j], actionNames[i]
	})
	rndMu.Unlock()
	for index, action := range actions {
		action()
		fmt.Printf("\rexecuted action %v for device %v", actionNames[index], deviceID)
		rndMu.Lock()
		pause := time.Duration(100+rnd.Int31n(1000)) * time.Millisecond
		rndMu.Unlock()
		time.Sleep(pause)
	}
}

func genPullAction(coord *agent.CoordinatorClient, deviceID string) func() {
	return func() {
		if flipCoin() {
			if _, err := coord.PullSnapshot(context.Background()); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
		} else {
			if _, err := grpcClient.GetSnapshot(context.Background(), deviceID); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
		}
	}
}

func genHeartbeatAction(coord *agent.CoordinatorClient) func() {
	return func() {
		err := coord.SendHeartbeat(context.Background(), &models.Heartbeat{
			Uptime:    rndFloat64(60, 86400, 0),
			SwitchOn:  flipCoin(),
			LastPrice: rndFloat64(0.01, 0.5, 4),
			LastSync:  30,
		})
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
		}
	}
}

func genSavePolicyAction(deviceID string) func() {
	return func() {
		resp, err := postJSON(http.MethodPut, "/devices/"+deviceID+"/policy", map[string]any{
			"maxPrice":    rndFloat64(0.2, 0.5, 2),
			"numCheapest": 4 + int(rndFloat64(0, 8, 0)),
			"timeFrame":   "1hour",
		})
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("\nresponse status code != 200: %v\n", resp.Status)
		}
	}
}
