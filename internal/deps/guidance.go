package deps

// Guidance tells a user how to install a tool on one OS family.
type Guidance struct {
	Tool         Tool     `json:"tool"`
	OS           string   `json:"os"`
	Instructions string   `json:"instructions"`
	Commands     []string `json:"commands"`
	Tips         []string `json:"tips,omitempty"`
	URL          string   `json:"url"`
}

// OS families used by the guidance table.
const (
	familyWindows = "windows"
	familyMacOS   = "darwin"
	familyLinux   = "linux"
)

// osFamily folds GOOS values onto the three families the table knows.
func osFamily(goos string) string {
	switch goos {
	case familyWindows, familyMacOS:
		return goos
	default:
		return familyLinux
	}
}

type guidanceKey struct {
	tool   Tool
	family string
}

var commonTips = map[Tool][]string{
	ToolPandoc: {
		"Run 'pandoc --version' in a new terminal to confirm the install.",
		"If pandoc is installed but not found, set its full path in the config (pandoc.customPath).",
	},
	ToolTypst: {
		"Run 'typst --version' in a new terminal to confirm the install.",
		"Binaries installed with cargo live in ~/.cargo/bin; add it to additionalPaths if needed.",
	},
	ToolRasterizer: {
		"pdftocairo ships with poppler; it is only needed for notes that embed PDF files.",
		"Without it, embedded PDFs are exported as links instead of page images.",
	},
}

var urls = map[Tool]string{
	ToolPandoc:     "https://pandoc.org/installing.html",
	ToolTypst:      "https://github.com/typst/typst#installation",
	ToolRasterizer: "https://poppler.freedesktop.org/",
}

var guidanceTable = map[guidanceKey]Guidance{
	{ToolPandoc, familyWindows}: {
		Instructions: "Install pandoc with winget, Chocolatey or the MSI installer.",
		Commands:     []string{"winget install --id JohnMacFarlane.Pandoc", "choco install pandoc"},
		Tips:         []string{"Restart the terminal after installing so PATH is refreshed."},
	},
	{ToolPandoc, familyMacOS}: {
		Instructions: "Install pandoc with Homebrew or the macOS package installer.",
		Commands:     []string{"brew install pandoc"},
		Tips:         []string{"Apple Silicon Homebrew installs to /opt/homebrew/bin."},
	},
	{ToolPandoc, familyLinux}: {
		Instructions: "Install pandoc 3.x. Distribution packages are often older; the release tarball is always current.",
		Commands:     []string{"sudo apt install pandoc", "sudo dnf install pandoc", "sudo pacman -S pandoc"},
		Tips:         []string{"Check 'pandoc --version'; Debian stable may ship 2.x, which is too old."},
	},
	{ToolTypst, familyWindows}: {
		Instructions: "Install typst with winget or download the release archive.",
		Commands:     []string{"winget install --id Typst.Typst"},
	},
	{ToolTypst, familyMacOS}: {
		Instructions: "Install typst with Homebrew.",
		Commands:     []string{"brew install typst"},
	},
	{ToolTypst, familyLinux}: {
		Instructions: "Install typst from your distribution, snap or cargo.",
		Commands:     []string{"cargo install --locked typst-cli", "sudo snap install typst", "sudo pacman -S typst"},
	},
	{ToolRasterizer, familyWindows}: {
		Instructions: "Install poppler, which provides pdftocairo.",
		Commands:     []string{"choco install poppler", "scoop install poppler"},
		Tips:         []string{"Add the poppler 'Library\\bin' directory to additionalPaths."},
	},
	{ToolRasterizer, familyMacOS}: {
		Instructions: "Install poppler, which provides pdftocairo.",
		Commands:     []string{"brew install poppler"},
	},
	{ToolRasterizer, familyLinux}: {
		Instructions: "Install poppler-utils, which provides pdftocairo.",
		Commands:     []string{"sudo apt install poppler-utils", "sudo dnf install poppler-utils", "sudo pacman -S poppler"},
	},
}

// InstallGuidance returns install instructions for tool on goos. GOOS values
// other than windows and darwin get the Linux guidance.
func InstallGuidance(tool Tool, goos string) Guidance {
	family := osFamily(goos)
	g, ok := guidanceTable[guidanceKey{tool, family}]
	if !ok {
		return Guidance{Tool: tool, OS: family, Instructions: "Install " + tool.String() + " and make sure it is on PATH."}
	}
	g.Tool = tool
	g.OS = family
	g.URL = urls[tool]
	g.Tips = append(append([]string(nil), g.Tips...), commonTips[tool]...)
	return g
}
