package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursecraft/internal/ui/theme"
)

const bannerArt = `
  ___  __   _  _  ____  ____  ____   ___  ____   __   ____  ____
 / __)/  \ / )( \(  _ \/ ___)(  __) / __)(  _ \ / _\ (  __)(_  _)
( (__(  O )) \/ ( )   /\___ \ ) _) ( (__  )   //    \ ) _)   )(
 \___)\__/ \____/(__\_)(____/(____) \___)(__\_)\_/\_/(__)   (__)`

const bannerCompact = "C O U R S E C R A F T"

// RenderBanner returns the banner in the primary color, falling back to a
// compact form below 70 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	if width < 70 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
