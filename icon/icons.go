package icon

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Warn
	Info
	Question
	Download
	Merge
	Pause
	Cancel
	Arrow
	Mark
	Progress
)

var icons = map[Icon]*iconDef{
	Success: {
		emoji:   "✅",
		nerd:    "",
		plain:   "+",
		kaomoji: "(ᵔ◡ᵔ)",
		squares: "🟩",
	},
	Fail: {
		emoji:   "💀",
		nerd:    "",
		plain:   "x",
		kaomoji: "(×﹏×)",
		squares: "🟥",
	},
	Warn: {
		emoji:   "⚠️",
		nerd:    "",
		plain:   "!",
		kaomoji: "(・_・;)",
		squares: "🟨",
	},
	Info: {
		emoji:   "ℹ️",
		nerd:    "",
		plain:   "i",
		kaomoji: "(・ω・)",
		squares: "🟦",
	},
	Question: {
		emoji:   "❓",
		nerd:    "",
		plain:   "?",
		kaomoji: "(・・ ) ?",
		squares: "🟪",
	},
	Download: {
		emoji:   "📥",
		nerd:    "",
		plain:   "v",
		kaomoji: "(っ˘ω˘ς )",
		squares: "🟦",
	},
	Merge: {
		emoji:   "🎬",
		nerd:    "",
		plain:   "&",
		kaomoji: "(ﾉ◕ヮ◕)ﾉ",
		squares: "🟪",
	},
	Pause: {
		emoji:   "⏸️",
		nerd:    "",
		plain:   "=",
		kaomoji: "(－_－) zzZ",
		squares: "🟧",
	},
	Cancel: {
		emoji:   "🚫",
		nerd:    "",
		plain:   "-",
		kaomoji: "(╯°□°)╯",
		squares: "⬛",
	},
	Arrow: {
		emoji:   "👉",
		nerd:    "",
		plain:   ">",
		kaomoji: "(｀･ω･´)ゞ",
		squares: "▶",
	},
	Mark: {
		emoji:   "🔹",
		nerd:    "",
		plain:   "*",
		kaomoji: "(•̀ᴗ•́)",
		squares: "◾",
	},
	Progress: {
		emoji:   "⏳",
		nerd:    "\uf110",
		plain:   "~",
		kaomoji: "(๑•̀ㅂ•́)و",
		squares: "🟫",
	},
}
