// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bootcfg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milkmanabi/mimiboot/bootcfg"
)

const sampleConfig = `
# boot.cfg
image = /kernel.bin
fallback = /recovery.bin
timeout = 5
delay = yes
baudrate = 921600
verbose = true
verify = on
max_retries = 2

# unknown keys are tolerated
frobnicate = 42
`

func TestParseRecognizedKeys(t *testing.T) {
	cfg, err := bootcfg.Parse([]byte(sampleConfig))
	require.NoError(t, err)

	require.Equal(t, "/kernel.bin", cfg.Image)
	require.Equal(t, "/recovery.bin", cfg.Fallback)
	require.Equal(t, 5, cfg.Timeout)
	require.True(t, cfg.Delay)
	require.Equal(t, 921600, cfg.BaudRate)
	require.True(t, cfg.Verbose)
	require.True(t, cfg.Verify)
	require.Equal(t, 2, cfg.MaxRetries)
}

func TestQuietImpliesNotVerbose(t *testing.T) {
	cfg, err := bootcfg.Parse([]byte("verbose = true\nquiet = 1\n"))
	require.NoError(t, err)
	require.True(t, cfg.Quiet)
	require.False(t, cfg.Verbose)
}

func TestSelectImageFallsBackAfterMaxRetries(t *testing.T) {
	cfg := bootcfg.Default()
	cfg.Fallback = "/recovery.bin"
	cfg.MaxRetries = 3

	require.Equal(t, cfg.Image, cfg.SelectImage(0))
	require.Equal(t, cfg.Image, cfg.SelectImage(2))
	require.Equal(t, "/recovery.bin", cfg.SelectImage(3))
	require.Equal(t, "/recovery.bin", cfg.SelectImage(4))
}

func TestDefaults(t *testing.T) {
	cfg := bootcfg.Default()
	require.Equal(t, "/kernel.bin", cfg.Image)
	require.Equal(t, 3, cfg.Timeout)
	require.Equal(t, 115200, cfg.BaudRate)
	require.Equal(t, 3, cfg.MaxRetries)
}
