package tftpconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obarthel/amiga-sana-ii-tftpclient/tftpconfig"
)

func TestParseDownload(t *testing.T) {
	cfg, err := tftpconfig.Parse("tftpclient", []string{
		"-device", "eth0",
		"-local", "10.0.0.2",
		"-source", "10.0.0.1:/remote/file.bin",
		"-destination", "local.bin",
	})
	require.NoError(t, err)
	assert.Equal(t, tftpconfig.Download, cfg.Direction)
	assert.Equal(t, [4]byte{10, 0, 0, 1}, cfg.RemoteAddr)
	assert.Equal(t, "/remote/file.bin", cfg.RemoteFilename)
	assert.Equal(t, "local.bin", cfg.LocalPath)
	assert.Equal(t, uint16(tftpconfig.DefaultRemotePort), cfg.RemotePort)
}

func TestParseUpload(t *testing.T) {
	cfg, err := tftpconfig.Parse("tftpclient", []string{
		"-local", "10.0.0.2",
		"-source", "local.bin",
		"-destination", "10.0.0.1:/remote/file.bin",
	})
	require.NoError(t, err)
	assert.Equal(t, tftpconfig.Upload, cfg.Direction)
	assert.Equal(t, "local.bin", cfg.LocalPath)
	assert.Equal(t, "/remote/file.bin", cfg.RemoteFilename)
}

func TestDerivesLocalBasenameFromRemotePath(t *testing.T) {
	cfg, err := tftpconfig.Parse("tftpclient", []string{
		"-local", "10.0.0.2",
		"-source", "10.0.0.1:/remote/dir/file.bin",
	})
	require.NoError(t, err)
	assert.Equal(t, "file.bin", cfg.LocalPath)
}

func TestRejectsBothRemote(t *testing.T) {
	_, err := tftpconfig.Parse("tftpclient", []string{
		"-local", "10.0.0.2",
		"-source", "10.0.0.1:/a",
		"-destination", "10.0.0.1:/b",
	})
	assert.ErrorIs(t, err, tftpconfig.ErrNeedExactlyOneRemote)
}

func TestRejectsNeitherRemote(t *testing.T) {
	_, err := tftpconfig.Parse("tftpclient", []string{
		"-local", "10.0.0.2",
		"-source", "a",
		"-destination", "b",
	})
	assert.ErrorIs(t, err, tftpconfig.ErrNeedExactlyOneRemote)
}

func TestRejectsSelfAddressedRemote(t *testing.T) {
	_, err := tftpconfig.Parse("tftpclient", []string{
		"-local", "10.0.0.2",
		"-source", "10.0.0.2:/a",
		"-destination", "b",
	})
	assert.ErrorIs(t, err, tftpconfig.ErrNeedExactlyOneRemote)
}

func TestRejectsLoopbackRemote(t *testing.T) {
	_, err := tftpconfig.Parse("tftpclient", []string{
		"-local", "10.0.0.2",
		"-source", "127.0.0.1:/a",
		"-destination", "b",
	})
	assert.ErrorIs(t, err, tftpconfig.ErrNeedExactlyOneRemote)
}

func TestRejectsBroadcastRemote(t *testing.T) {
	_, err := tftpconfig.Parse("tftpclient", []string{
		"-local", "10.0.0.2",
		"-source", "255.255.255.255:/a",
		"-destination", "b",
	})
	assert.ErrorIs(t, err, tftpconfig.ErrBroadcastRemote)
}

func TestRejectsMissingLocalAddr(t *testing.T) {
	_, err := tftpconfig.Parse("tftpclient", []string{
		"-source", "10.0.0.1:/a",
		"-destination", "b",
	})
	assert.ErrorIs(t, err, tftpconfig.ErrMissingLocalAddr)
}
