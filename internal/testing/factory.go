package testing

import (
	"os"
	"testing"

	"durakv/internal/config"
	"durakv/internal/core"
	"durakv/internal/server"
)

// TestSystemFactory creates engines and servers rooted in a throwaway
// directory per test.
type TestSystemFactory struct {
	t       *testing.T
	RootDir string
}

func NewTestFactory(t *testing.T) *TestSystemFactory {
	dir := "./test_data_factory_" + t.Name()
	os.RemoveAll(dir)
	os.MkdirAll(dir, 0755)

	return &TestSystemFactory{
		t:       t,
		RootDir: dir,
	}
}

func (f *TestSystemFactory) Cleanup() {
	os.RemoveAll(f.RootDir)
}

// CreateEngine returns an initialized engine over the factory directory.
func (f *TestSystemFactory) CreateEngine() *core.DatabaseEngine {
	engine := core.NewDatabaseEngine()
	if err := engine.Initialize(f.RootDir); err != nil {
		f.t.Fatalf("Factory failed to initialize engine: %v", err)
	}
	return engine
}

// CreateServer starts a server for the engine on an ephemeral port. The
// caller owns Stop.
func (f *TestSystemFactory) CreateServer(engine *core.DatabaseEngine, opts ...func(*config.SystemConfiguration)) *server.DatabaseServer {
	cfg := config.SystemConfiguration{
		ServerPort:             0,
		MaximumConnectionCount: config.DefaultMaximumConnectionCount,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dbServer := server.NewDatabaseServer(engine, cfg)
	if err := dbServer.Start(); err != nil {
		f.t.Fatalf("Factory failed to start server: %v", err)
	}
	return dbServer
}
