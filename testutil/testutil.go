package testutil

import (
	"context"
	"io/ioutil"
	"path"
	"testing"

	"github.com/boz/bringup/log"
	"github.com/ghodss/yaml"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func Context() context.Context {
	return log.NewContext(context.Background(), Log())
}

func Log() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	return l
}

func ReadFile(t *testing.T, fpath string) []byte {
	buf, err := ioutil.ReadFile(path.Join("_testdata", fpath))
	require.NoError(t, err, fpath)
	return buf
}

func ReadJSON(t *testing.T, fpath string) []byte {
	buf := ReadFile(t, fpath)
	var err error
	if path.Ext(fpath) == ".yaml" {
		buf, err = yaml.YAMLToJSON(buf)
		require.NoError(t, err, fpath)
	}
	return buf
}
