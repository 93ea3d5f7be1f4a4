// Package i18n translates scanner message keys into English or Portuguese.
package i18n
