package report

// Section is one planned part of the report.
//
// A section is complete once Content is non-empty. Researched sections are
// written from the dataset; derived sections (RequiresResearch false) are
// written afterwards from the researched content.
type Section struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	RequiresResearch bool   `json:"research"`
	Content          string `json:"content,omitempty"`
}

// Complete reports whether the section has been written.
func (s *Section) Complete() bool {
	return s != nil && s.Content != ""
}

// Pending returns the incomplete sections of the given class, in order.
func Pending(sections []*Section, research bool) []*Section {
	var out []*Section
	for _, s := range sections {
		if s.RequiresResearch == research && !s.Complete() {
			out = append(out, s)
		}
	}
	return out
}

// Completed returns the written sections, in order.
func Completed(sections []*Section) []*Section {
	var out []*Section
	for _, s := range sections {
		if s.Complete() {
			out = append(out, s)
		}
	}
	return out
}

// AnyResearch reports whether any section requires research.
func AnyResearch(sections []*Section) bool {
	for _, s := range sections {
		if s.RequiresResearch {
			return true
		}
	}
	return false
}

// CloneSections deep-copies a section list.
func CloneSections(sections []*Section) []*Section {
	if sections == nil {
		return nil
	}
	out := make([]*Section, len(sections))
	for i, s := range sections {
		c := *s
		out[i] = &c
	}
	return out
}
