package content

// Built-in copy served when the content table cannot be reached.
var defaultSections = map[string][]Section{
	"home": {
		newSection("hero", "Fresh kit, every session",
			"Drop your sweaty gym kit in a FreshKit bag at reception. We wash it and bring it back ready for your next workout.", 1),
		newSection("how", "How it works",
			"1. Drop your bag at the gym\n2. We collect, wash and dry\n3. Pick it up within 7 days of it being ready", 2),
	},
	"how-it-works": {
		newSection("drop", "Drop", "Leave your numbered bag at the FreshKit point in your gym.", 1),
		newSection("clean", "Clean", "Our laundry partner washes and dries your kit, usually within 48 hours.", 2),
		newSection("collect", "Collect", "We message you on WhatsApp when it is ready. Collect it within 7 days.", 3),
	},
	"faq": {
		newSection("what-can-i-send", "What can I send?",
			"Gym clothes, towels and socks. No shoes, no delicates.", 1),
		newSection("how-long", "How long does it take?",
			"Most bags are back within 48 hours of drop-off.", 2),
		newSection("pause", "Can I pause?",
			"Yes. Pause or cancel any time from your member portal.", 3),
	},
}

func defaultPage(page string) (Page, bool) {
	sections, ok := defaultSections[page]
	if !ok {
		return Page{}, false
	}
	out := make([]Section, len(sections))
	copy(out, sections)
	return Page{Page: page, Sections: out, Fallback: true}, true
}
