//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"deepfilter-media/cmd"
	"deepfilter-media/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	tempDir    string
	configPath string
	output     *bytes.Buffer
	err        error
}

// SharedConfigContext is reset after each scenario
var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config.yaml")
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedConfigContext = &configContext{}
		return c, nil
	})

	ctx.Step(`^a config file exists with:$`, testCtx.aConfigFileExistsWith)
	ctx.Step(`^I run config list$`, testCtx.iRunConfigList)
	ctx.Step(`^I run config get "([^"]*)"$`, testCtx.iRunConfigGet)
	ctx.Step(`^I run config set "([^"]*)" to "([^"]*)"$`, testCtx.iRunConfigSet)
	ctx.Step(`^I run config unset "([^"]*)"$`, testCtx.iRunConfigUnset)
	ctx.Step(`^the config output should contain "([^"]*)"$`, testCtx.theConfigOutputShouldContain)
	ctx.Step(`^the saved config should have "([^"]*)" set to "([^"]*)"$`, testCtx.theSavedConfigShouldHave)
	ctx.Step(`^the config command should fail with "([^"]*)"$`, testCtx.theConfigCommandShouldFailWith)
}

func (c *configContext) aConfigFileExistsWith(doc *godog.DocString) error {
	return os.WriteFile(c.configPath, []byte(doc.Content), 0644)
}

func (c *configContext) manager() (*config.ConfigManager, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	return config.NewConfigManager(cfg, c.configPath), nil
}

func (c *configContext) iRunConfigList() error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigListWithDependencies(mgr, c.output)
	return nil
}

func (c *configContext) iRunConfigGet(key string) error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigGetWithDependencies(mgr, key, c.output)
	return nil
}

func (c *configContext) iRunConfigSet(key, value string) error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigSetWithDependencies(mgr, c.configPath, key, value, c.output)
	return nil
}

func (c *configContext) iRunConfigUnset(key string) error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigUnsetWithDependencies(mgr, c.configPath, key, c.output)
	return nil
}

func (c *configContext) theConfigOutputShouldContain(expected string) error {
	if c.err != nil {
		return fmt.Errorf("config command failed: %w", c.err)
	}
	if !strings.Contains(c.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", expected, c.output.String())
	}
	return nil
}

func (c *configContext) theSavedConfigShouldHave(key, expected string) error {
	if c.err != nil {
		return fmt.Errorf("config command failed: %w", c.err)
	}
	mgr, err := c.manager()
	if err != nil {
		return err
	}
	got, err := mgr.Get(key)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("expected %s = %q, got %q", key, expected, got)
	}
	return nil
}

func (c *configContext) theConfigCommandShouldFailWith(expected string) error {
	if c.err == nil {
		return fmt.Errorf("expected an error containing %q", expected)
	}
	if !strings.Contains(c.err.Error(), expected) {
		return fmt.Errorf("expected error containing %q, got %q", expected, c.err.Error())
	}
	if cmd.ExitCode(c.err) != cmd.ExitUsage {
		return fmt.Errorf("expected a usage error, got exit code %d", cmd.ExitCode(c.err))
	}
	return nil
}
