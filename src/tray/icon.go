package tray

import "fyne.io/fyne/v2"

// SVG content for the tray icon: a camera body with a selection corner.
const SVGContent = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <!-- Camera body -->
  <rect x="1.5" y="4" width="13" height="9" rx="1.5" fill="none" stroke="#000000" stroke-width="1.2"/>
  <!-- Viewfinder bump -->
  <path d="M5.5 4 L6.5 2.5 H9.5 L10.5 4" fill="none" stroke="#000000" stroke-width="1.2" stroke-linejoin="round"/>
  <!-- Lens -->
  <circle cx="8" cy="8.5" r="2.6" fill="none" stroke="#000000" stroke-width="1.2"/>
  <!-- Selection corner -->
  <path d="M12 10.5 V12 H10.5" fill="none" stroke="#000000" stroke-width="0.8" stroke-dasharray="1,0.6"/>
</svg>`

// Icon is the tray icon resource. The monochrome SVG lets macOS tint it for dark menu bars.
var Icon = fyne.NewStaticResource("snipper.svg", []byte(SVGContent))
