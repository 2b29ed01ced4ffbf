package pool

import (
	"testing"

	"github.com/quay/lockcore/test"
)

func TestMain(m *testing.M) {
	test.Main(m)
}
