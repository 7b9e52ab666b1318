// Package browser manages the headless Chrome instance used to render
// pages and drives page capture: navigation, settling, HTML extraction,
// and full-page screenshots at a fixed viewport.
package browser
