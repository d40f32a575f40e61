package config

import (
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/sirupsen/logrus"
)

func TestDefaultConfig(t *testing.T) {
	conf := NewDefaultConfig()

	if conf.Params != consensus.DefaultParams() {
		t.Fatalf("unexpected default params %s", conf.Params)
	}
	if conf.Nodes <= conf.Params.K {
		t.Fatalf("default network is too small for k=%d", conf.Params.K)
	}
}

func TestSetDataDir(t *testing.T) {
	conf := NewDefaultConfig()
	conf.SetDataDir("/tmp/snow")

	if conf.DatabaseDir != filepath.Join("/tmp/snow", DefaultBadgerFile) {
		t.Fatalf("database dir should follow the data dir, got %s", conf.DatabaseDir)
	}

	conf.DatabaseDir = "/elsewhere"
	conf.SetDataDir("/tmp/other")
	if conf.DatabaseDir != "/elsewhere" {
		t.Fatalf("explicit database dir should be kept, got %s", conf.DatabaseDir)
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"error": logrus.ErrorLevel,
		"bogus": logrus.DebugLevel,
	}
	for in, want := range cases {
		if got := LogLevel(in); got != want {
			t.Errorf("LogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
