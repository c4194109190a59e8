package internal

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"durakv/internal/client"
	"durakv/internal/config"
	"durakv/internal/core"
	"durakv/internal/server"
	factory "durakv/internal/testing"
)

func startServer(t *testing.T, dataDir string) (*server.DatabaseServer, *core.DatabaseEngine) {
	engine := core.NewDatabaseEngine()
	if err := engine.Initialize(dataDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	srv := server.NewDatabaseServer(engine, config.SystemConfiguration{
		ServerPort:             0,
		MaximumConnectionCount: config.DefaultMaximumConnectionCount,
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return srv, engine
}

// 1. Crash recovery over the wire
func TestCrashRecoveryEndToEnd(t *testing.T) {
	f := factory.NewTestFactory(t)
	defer f.Cleanup()

	srv, engine := startServer(t, f.RootDir)

	c, err := client.Connect(srv.Address().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}

	mustPut := func(key, value string) {
		if err := c.Put(key, []byte(value)); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}
	mustPut("a", "1")
	mustPut("b", "2")
	mustPut("a", "3")
	if err := c.Delete("b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	c.Close()
	srv.Stop()
	engine.Shutdown()

	// Restart over the same data directory.
	srv2, engine2 := startServer(t, f.RootDir)
	defer srv2.Stop()
	defer engine2.Shutdown()

	c2, err := client.Connect(srv2.Address().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	value, err := c2.Get("a")
	if err != nil || string(value) != "3" {
		t.Errorf(`Expected "3", got %q, %v`, value, err)
	}
	if _, err := c2.Get("b"); err == nil {
		t.Error("Expected key b to stay deleted after recovery")
	}
}

// 2. Concurrent readers and writers
func TestConcurrentReadersAndWriters(t *testing.T) {
	f := factory.NewTestFactory(t)
	defer f.Cleanup()

	engine := f.CreateEngine()
	defer engine.Shutdown()

	seed := engine.BeginTransaction()
	for i := 0; i < 10; i++ {
		seed.Put(fmt.Sprintf("k%d", i), []byte("v0"))
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				txn := engine.BeginTransaction()
				key := fmt.Sprintf("k%d", i%10)
				if err := txn.Put(key, []byte(fmt.Sprintf("v%d-%d", worker, i))); err != nil {
					t.Errorf("Put failed: %v", err)
					return
				}
				txn.Commit()
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 400; i++ {
				txn := engine.BeginTransaction()
				value, err := txn.Get(fmt.Sprintf("k%d", i%10))
				if err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
				if len(value) < 2 || value[0] != 'v' {
					t.Errorf("Read observed a partial write: %q", value)
					return
				}
			}
		}()
	}
	wg.Wait()
}

// 3. Scan through the client
func TestScanEndToEnd(t *testing.T) {
	f := factory.NewTestFactory(t)
	defer f.Cleanup()

	srv, engine := startServer(t, f.RootDir)
	defer srv.Stop()
	defer engine.Shutdown()

	c, err := client.Connect(srv.Address().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("range:%d", i), []byte("v"))
	}
	c.Put("outside", []byte("v"))

	pairs, err := c.Scan("range:", "range:\xff")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(pairs) != 5 {
		t.Errorf("Expected 5 pairs, got %d", len(pairs))
	}
}

// 4. Ping latency sanity
func TestPingEndToEnd(t *testing.T) {
	f := factory.NewTestFactory(t)
	defer f.Cleanup()

	srv, engine := startServer(t, f.RootDir)
	defer srv.Stop()
	defer engine.Shutdown()

	c, err := client.Connect(srv.Address().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	latency, err := c.Ping()
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if latency <= 0 {
		t.Error("Non-positive ping latency")
	}
}
