package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/sostream/internal/config"
	"github.com/calvinalkan/sostream/pkg/fs"
	"github.com/calvinalkan/sostream/pkg/stream"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func load(t *testing.T, dir string, mutate func(*config.LoadInput)) (config.Config, error) {
	t.Helper()

	input := config.LoadInput{
		WorkDirOverride: dir,
		Env:             map[string]string{"XDG_CONFIG_HOME": filepath.Join(dir, "xdg")},
	}

	if mutate != nil {
		mutate(&input)
	}

	return config.Load(input)
}

func Test_Load_Returns_Defaults_When_No_Config_Files_Exist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := load(t, dir, nil)
	require.NoError(t, err)

	require.Equal(t, stream.DefaultBufferSize, cfg.BufferSize)
	require.Equal(t, os.FileMode(0o644), cfg.PermMode)
	require.Equal(t, fs.AdviceNone, cfg.Advice)
	require.Equal(t, dir, cfg.EffectiveCwd)
	require.Equal(t, config.Sources{}, cfg.Sources)
}

func Test_Load_Reads_Project_File_With_Comments_When_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{
		// small buffer to make flushes visible
		"buffer_size": 16,
		"perm": "0600",
		"advise": "sequential",
	}`)

	cfg, err := load(t, dir, nil)
	require.NoError(t, err)

	require.Equal(t, 16, cfg.BufferSize)
	require.Equal(t, os.FileMode(0o600), cfg.PermMode)
	require.Equal(t, fs.AdviceSequential, cfg.Advice)
	require.Equal(t, filepath.Join(dir, config.FileName), cfg.Sources.Project)
}

func Test_Load_Applies_Precedence_When_All_Sources_Are_Set(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	globalFile := filepath.Join(dir, "xdg", "sot", "config.json")

	writeFile(t, globalFile, `{"buffer_size": 100, "perm": "0640", "advise": "random"}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{"buffer_size": 200}`)

	cfg, err := load(t, dir, nil)
	require.NoError(t, err)

	require.Equal(t, 200, cfg.BufferSize, "project overrides global")
	require.Equal(t, os.FileMode(0o640), cfg.PermMode, "global survives where project is silent")
	require.Equal(t, fs.AdviceRandom, cfg.Advice)
	require.Equal(t, globalFile, cfg.Sources.Global)

	cfg, err = load(t, dir, func(in *config.LoadInput) { in.BufferSizeOverride = 300 })
	require.NoError(t, err)
	require.Equal(t, 300, cfg.BufferSize, "flag overrides files")
}

func Test_Load_Uses_Explicit_File_Instead_Of_Project_File_When_Config_Path_Is_Set(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{"buffer_size": 200}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"buffer_size": 64}`)

	cfg, err := load(t, dir, func(in *config.LoadInput) { in.ConfigPath = "custom.json" })
	require.NoError(t, err)

	require.Equal(t, 64, cfg.BufferSize)
	require.Equal(t, filepath.Join(dir, "custom.json"), cfg.Sources.Project)
}

func Test_Load_Falls_Back_To_Home_When_XDG_Is_Unset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "home", ".config", "sot", "config.json"), `{"buffer_size": 32}`)

	cfg, err := load(t, dir, func(in *config.LoadInput) {
		in.Env = map[string]string{"HOME": filepath.Join(dir, "home")}
	})
	require.NoError(t, err)
	require.Equal(t, 32, cfg.BufferSize)
}

func Test_Load_Fails_When_Explicit_Config_File_Is_Missing(t *testing.T) {
	t.Parallel()

	_, err := load(t, t.TempDir(), func(in *config.LoadInput) { in.ConfigPath = "nope.json" })

	require.ErrorIs(t, err, config.ErrConfigFileNotFound)
	require.ErrorContains(t, err, "nope.json")
}

func Test_Load_Fails_With_File_Name_When_Config_Is_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		content string
		want    error
	}{
		"syntax":        {`{"buffer_size": `, config.ErrConfigInvalid},
		"zero buffer":   {`{"buffer_size": 0}`, config.ErrBufferSizeInvalid},
		"negative":      {`{"buffer_size": -4}`, config.ErrBufferSizeInvalid},
		"empty perm":    {`{"perm": ""}`, config.ErrPermInvalid},
		"decimal perm":  {`{"perm": "999"}`, config.ErrPermInvalid},
		"too wide perm": {`{"perm": "01777"}`, config.ErrPermInvalid},
		"advise":        {`{"advise": "willneed"}`, config.ErrAdviseInvalid},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, config.FileName)
			writeFile(t, path, tc.content)

			_, err := load(t, dir, nil)

			require.ErrorIs(t, err, config.ErrConfigInvalid)
			require.ErrorIs(t, err, tc.want)
			require.ErrorContains(t, err, path)
		})
	}
}

func Test_Load_Fails_When_Buffer_Size_Override_Is_Negative(t *testing.T) {
	t.Parallel()

	_, err := load(t, t.TempDir(), func(in *config.LoadInput) { in.BufferSizeOverride = -1 })

	require.ErrorIs(t, err, config.ErrBufferSizeInvalid)
}

func Test_StreamOptions_Carries_Resolved_Values(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{"buffer_size": 8, "perm": "0600", "advise": "random"}`)

	cfg, err := load(t, dir, nil)
	require.NoError(t, err)

	fsys := fs.NewReal()
	opts := cfg.StreamOptions(fsys)

	require.Equal(t, stream.Options{
		BufferSize: 8,
		Perm:       0o600,
		FS:         fsys,
		Advise:     fs.AdviceRandom,
	}, opts)
}
