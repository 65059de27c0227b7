//go:build e2e

package e2e

import (
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openWizard starts the deploy wizard from the demo app landing page
func openWizard(t *testing.T, page playwright.Page) {
	t.Helper()
	openDemo(t, page)
	require.NoError(t, page.Locator("text=Implantar").First().Click())
	waitVisible(t, page, "[data-testid='wizard'], .wizard", 15000)
}

// advanceWizard clicks the continue button to move to the next step
func advanceWizard(t *testing.T, page playwright.Page) {
	t.Helper()
	require.NoError(t, page.Locator("text=Continuar").First().Click())
}

func TestWizard_Opens(t *testing.T) {
	page := newPage(t)
	openWizard(t, page)

	// step one asks for the region
	waitVisible(t, page, "[data-testid='region-select'], .region-card", 15000)
}

func TestWizard_RegionStep(t *testing.T) {
	page := newPage(t)
	openWizard(t, page)

	regions := page.Locator("[data-testid='region-option'], .region-card")
	count, err := regions.Count()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1, "at least one region should be offered")

	require.NoError(t, regions.First().Click())
	advanceWizard(t, page)

	// hardware step shows the GPU catalog
	waitVisible(t, page, "[data-testid='gpu-card'], .gpu-card", 15000)
}

func TestWizard_HardwareStep(t *testing.T) {
	page := newPage(t)
	openWizard(t, page)

	require.NoError(t, page.Locator("[data-testid='region-option'], .region-card").First().Click())
	advanceWizard(t, page)
	waitVisible(t, page, "[data-testid='gpu-card'], .gpu-card", 15000)

	cards := page.Locator("[data-testid='gpu-card'], .gpu-card")
	count, err := cards.Count()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1, "GPU catalog should not be empty")

	// each card names the GPU model
	text, err := cards.First().TextContent()
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	require.NoError(t, cards.First().Click())
	advanceWizard(t, page)

	// strategy step follows hardware
	waitVisible(t, page, "[data-testid='strategy-select'], .strategy-option", 15000)
}

func TestWizard_RaceProvisioningStrategy(t *testing.T) {
	page := newPage(t)
	openWizard(t, page)

	require.NoError(t, page.Locator("[data-testid='region-option'], .region-card").First().Click())
	advanceWizard(t, page)
	waitVisible(t, page, "[data-testid='gpu-card'], .gpu-card", 15000)
	require.NoError(t, page.Locator("[data-testid='gpu-card'], .gpu-card").First().Click())
	advanceWizard(t, page)
	waitVisible(t, page, "[data-testid='strategy-select'], .strategy-option", 15000)

	// race provisioning leases several candidate machines and keeps the first
	// that comes up, the wizard offers it as a strategy option
	race := page.Locator("[data-testid='strategy-race'], .strategy-option:has-text('race')")
	count, err := race.Count()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1, "race provisioning should be offered as a strategy")

	require.NoError(t, race.First().Click())
	require.NoError(t, page.Locator("text=Implantar").Last().Click())

	// provisioning progress appears after the deploy is submitted
	waitVisible(t, page, "[data-testid='provisioning'], .provisioning-progress", 20000)
}

func TestWizard_ProvisioningProgress(t *testing.T) {
	page := newPage(t)
	openWizard(t, page)

	require.NoError(t, page.Locator("[data-testid='region-option'], .region-card").First().Click())
	advanceWizard(t, page)
	waitVisible(t, page, "[data-testid='gpu-card'], .gpu-card", 15000)
	require.NoError(t, page.Locator("[data-testid='gpu-card'], .gpu-card").First().Click())
	advanceWizard(t, page)
	waitVisible(t, page, "[data-testid='strategy-select'], .strategy-option", 15000)
	require.NoError(t, page.Locator("[data-testid='strategy-select'], .strategy-option").First().Click())
	require.NoError(t, page.Locator("text=Implantar").Last().Click())

	waitVisible(t, page, "[data-testid='provisioning'], .provisioning-progress", 20000)

	// demo mode completes provisioning quickly, the progress indicator goes away
	waitHidden(t, page, "[data-testid='provisioning'], .provisioning-progress", 60000)
}
