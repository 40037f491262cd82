// Package ports defines the capability interfaces between the automation core
// and the OS accessibility adapters. Each platform (Windows UIA, macOS AX,
// Linux AT-SPI) supplies one Platform implementation; higher layers never
// touch platform handles directly.
package ports
