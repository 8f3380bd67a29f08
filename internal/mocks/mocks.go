// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/uiverify/internal/browser"
	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/locator"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	return m.Called().Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	return m.Called().Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Target() config.TargetConfig {
	return m.Called().Get(0).(config.TargetConfig)
}

func (m *MockConfig) Timeouts() config.TimeoutConfig {
	return m.Called().Get(0).(config.TimeoutConfig)
}

func (m *MockConfig) Retry() config.RetryConfig {
	return m.Called().Get(0).(config.RetryConfig)
}

func (m *MockConfig) Output() config.OutputConfig {
	return m.Called().Get(0).(config.OutputConfig)
}

// -- Browser Capability Mocks --

// MockLauncher mocks browser.Launcher.
type MockLauncher struct {
	mock.Mock
}

var _ browser.Launcher = (*MockLauncher)(nil)

func (m *MockLauncher) Launch(ctx context.Context) (browser.Browser, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).(browser.Browser)
	return b, args.Error(1)
}

// MockBrowser mocks browser.Browser.
type MockBrowser struct {
	mock.Mock
}

var _ browser.Browser = (*MockBrowser)(nil)

func (m *MockBrowser) NewPage(ctx context.Context) (browser.Page, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(browser.Page)
	return p, args.Error(1)
}

func (m *MockBrowser) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockPage mocks browser.Page.
type MockPage struct {
	mock.Mock
}

var _ browser.Page = (*MockPage)(nil)

func (m *MockPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	return m.Called(ctx, url, timeout).Error(0)
}

func (m *MockPage) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) WaitFor(ctx context.Context, loc locator.Locator, state locator.State, timeout time.Duration) error {
	return m.Called(ctx, loc, state, timeout).Error(0)
}

func (m *MockPage) Fill(ctx context.Context, loc locator.Locator, text string) error {
	return m.Called(ctx, loc, text).Error(0)
}

func (m *MockPage) Click(ctx context.Context, loc locator.Locator) error {
	return m.Called(ctx, loc).Error(0)
}

func (m *MockPage) SelectOption(ctx context.Context, loc locator.Locator, value string) error {
	return m.Called(ctx, loc, value).Error(0)
}

func (m *MockPage) IsVisible(ctx context.Context, loc locator.Locator) (bool, error) {
	args := m.Called(ctx, loc)
	return args.Bool(0), args.Error(1)
}

func (m *MockPage) InputValue(ctx context.Context, loc locator.Locator) (string, error) {
	args := m.Called(ctx, loc)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	args := m.Called(ctx, fullPage)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockPage) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
