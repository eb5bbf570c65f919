package copyright

import (
	"fmt"
	"strings"

	"lc2gh/pkg/version"

	"github.com/fatih/color"
)

var (
	// 颜色组合
	titleColor   = color.New(color.FgHiCyan, color.Bold)
	versionColor = color.New(color.FgHiGreen)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	routeColor   = color.New(color.FgHiMagenta)
	defaultColor = color.New(color.FgWhite)
)

// SystemStatus 启动时展示的运行信息
type SystemStatus struct {
	Listen        string
	APIBase       string
	StorageDriver string
	DedupBackend  string
	Linked        bool
	DeviceID      string
	Routes        []string
}

// PrintCopyright 打印版权信息
func PrintCopyright(status SystemStatus) {
	printLogo()
	printFrame(status)
}

func printFrame(status SystemStatus) {
	titleColor.Println("| Relay Information")
	defaultColor.Println("│")

	// 版本信息
	versionInfo := version.GetVersionInfo()
	defaultColor.Print("│ Version    : ")
	versionColor.Printf("%s", versionInfo["version"])
	defaultColor.Printf(" built at %s (%s)\n", versionInfo["build_time"], versionInfo["go_version"])

	defaultColor.Print("│ Listen     : ")
	versionColor.Println(status.Listen)
	defaultColor.Print("│ Backend    : ")
	versionColor.Println(status.APIBase)

	// 存储状态
	defaultColor.Println("│")
	defaultColor.Println("│ Storage")
	defaultColor.Print("│ ⚡ Session  : ")
	successColor.Println(status.StorageDriver)
	defaultColor.Print("│ ⚡ Dedup    : ")
	successColor.Println(status.DedupBackend)

	// 关联状态
	defaultColor.Println("│")
	defaultColor.Print("│ Account    : ")
	if status.Linked {
		successColor.Println("Linked")
	} else {
		warningColor.Println("Not linked, open /api/v1/auth/link/start to connect")
	}
	if status.DeviceID != "" {
		defaultColor.Print("│ Device     : ")
		defaultColor.Println(status.DeviceID)
	}

	// 路由
	if len(status.Routes) > 0 {
		defaultColor.Println("│")
		defaultColor.Println("│ Routes")
		for _, route := range status.Routes {
			defaultColor.Print("│   └─ ")
			routeColor.Println(route)
		}
	}

	defaultColor.Println("│")
	defaultColor.Print("│ ")
	titleColor.Println("LC2GH relay")
	fmt.Println()
}

func printLogo() {
	logo := `
    __    ______ ___   ______ __  __
   / /   / ____/|__ \ / ____// / / /
  / /   / /     __/ // / __ / /_/ / 
 / /___/ /___  / __// /_/ // __  /  
/_____/\____/ /____/\____//_/ /_/   
`
	lines := strings.Split(logo, "\n")
	for _, line := range lines {
		titleColor.Println(line)
	}
}
