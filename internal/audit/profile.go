package audit

import (
	"fmt"

	"github.com/shyim/lighthouse-compare/internal/models"
)

// Profile is the fixed emulation setup for one device.
type Profile struct {
	Device            models.Device
	FormFactor        string
	Mobile            bool
	Width             int
	Height            int
	DeviceScaleFactor float64
}

var (
	DesktopProfile = Profile{
		Device:            models.Desktop,
		FormFactor:        "desktop",
		Mobile:            false,
		Width:             1350,
		Height:            940,
		DeviceScaleFactor: 1,
	}
	MobileProfile = Profile{
		Device:            models.Mobile,
		FormFactor:        "mobile",
		Mobile:            true,
		Width:             375,
		Height:            667,
		DeviceScaleFactor: 2,
	}
)

func ProfileFor(d models.Device) (Profile, error) {
	switch d {
	case models.Desktop:
		return DesktopProfile, nil
	case models.Mobile:
		return MobileProfile, nil
	}
	return Profile{}, fmt.Errorf("no profile for device %q", d)
}

// lighthouseFlags are the CLI flags shared by every engine: performance
// only, JSON on stdout, and screen emulation from the profile.
func lighthouseFlags(p Profile) []string {
	return []string{
		"--only-categories=performance",
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--form-factor=" + p.FormFactor,
		fmt.Sprintf("--screenEmulation.mobile=%t", p.Mobile),
		fmt.Sprintf("--screenEmulation.width=%d", p.Width),
		fmt.Sprintf("--screenEmulation.height=%d", p.Height),
		fmt.Sprintf("--screenEmulation.deviceScaleFactor=%g", p.DeviceScaleFactor),
		"--screenEmulation.disabled=false",
	}
}
