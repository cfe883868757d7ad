// Package filterfuncs parses the function lists printed by
// ftrace, such as set_ftrace_filter and the
// available_filter_functions file, and groups the
// functions by the module owning them.
package filterfuncs

import (
	"bytes"
	"regexp"
	"sort"
)

// regexpFunctionItem matches "name" or "name [module]".
// Comment lines (e.g. "#### all functions enabled ####")
// and command entries ("name:traceon") never match.
var regexpFunctionItem = regexp.MustCompilePOSIX(
	`^([^ \t#:]+)([ \t]+\[([^]]+)\])?$`)

func init() {
	regexpFunctionItem.Longest()
}

// List is the parsed function list. Functions built into
// the kernel image are filed under the empty module name.
type List struct {
	modules map[string][]string
}

// Functions returns the functions of a module in the
// order they were listed.
func (l *List) Functions(module string) []string {
	return l.modules[module]
}

// Count returns the number of functions of a module.
func (l *List) Count(module string) int {
	return len(l.modules[module])
}

// Modules returns the sorted names of modules that own at
// least one listed function.
func (l *List) Modules() []string {
	var result []string
	for module := range l.modules {
		result = append(result, module)
	}
	sort.Strings(result)
	return result
}

// Parse the function list. When interestedModules is not
// nil, functions of other modules are dropped.
func Parse(
	data []byte, interestedModules map[string]struct{},
) *List {
	result := &List{modules: make(map[string][]string)}
	for len(data) > 0 {
		index := bytes.IndexByte(data, '\n')
		current := data
		if index < 0 {
			data = nil
		} else {
			current = data[:index]
			data = data[index+1:]
		}
		// 1: function name
		// 2: bracketed module suffix
		// 3: module name
		matches := regexpFunctionItem.FindSubmatch(
			bytes.TrimRight(current, " \t\r"))
		if len(matches) == 0 {
			continue
		}
		module := string(matches[3])
		if interestedModules != nil {
			if _, ok := interestedModules[module]; !ok {
				continue
			}
		}
		result.modules[module] = append(
			result.modules[module], string(matches[1]))
	}
	return result
}
