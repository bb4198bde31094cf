package buildinfo

import "fmt"

// Значения устанавливаются при сборке через ldflags
var (
	BuildVersion = "N/A"
	BuildDate    = "N/A"
	BuildCommit  = "N/A"
)

// String возвращает информацию о сборке одной строкой
func String() string {
	return fmt.Sprintf("version=%s date=%s commit=%s", BuildVersion, BuildDate, BuildCommit)
}

// PrintBuildInfo выводит информацию о сборке в stdout
func PrintBuildInfo() {
	fmt.Printf("Build version: %s\n", BuildVersion)
	fmt.Printf("Build date: %s\n", BuildDate)
	fmt.Printf("Build commit: %s\n", BuildCommit)
}
