package e2e_test

import (
	"context"
	"testing"

	"github.com/joho/godotenv"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MichalPlaza/meeting-synthesis-sub001/citest/testutil"
)

var (
	backend *testutil.MockBackend
	ctx     context.Context
)

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "E2E Suite")
}

var _ = BeforeSuite(func() {
	// Optional local overrides (log level etc.)
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load(".env")

	ctx = context.Background()
})

var _ = BeforeEach(func() {
	backend = testutil.NewMockBackend()
})

var _ = AfterEach(func() {
	if backend != nil {
		backend.Close()
	}
})
