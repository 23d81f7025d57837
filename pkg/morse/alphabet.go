// Package morse holds the morse alphabet and the decoder of classified morse tokens.
package morse

import "unicode"

const (
	// DotSign and DashSign are the characters of a code.
	DotSign  = '.'
	DashSign = '-'
)

// Entry maps a morse code to its character.
type Entry struct {
	Char rune
	Code string
}

// alphabet is the fixed morse table: the space (seven dots), A-Z and 0-9.
var alphabet = [37]Entry{
	{' ', "......."},
	{'A', ".-"},
	{'B', "-..."},
	{'C', "-.-."},
	{'D', "-.."},
	{'E', "."},
	{'F', "..-."},
	{'G', "--."},
	{'H', "...."},
	{'I', ".."},
	{'J', ".---"},
	{'K', "-.-"},
	{'L', ".-.."},
	{'M', "--"},
	{'N', "-."},
	{'O', "---"},
	{'P', ".--."},
	{'Q', "--.-"},
	{'R', ".-."},
	{'S', "..."},
	{'T', "-"},
	{'U', "..-"},
	{'V', "...-"},
	{'W', ".--"},
	{'X', "-..-"},
	{'Y', "-.--"},
	{'Z', "--.."},
	{'0', "-----"},
	{'1', ".----"},
	{'2', "..---"},
	{'3', "...--"},
	{'4', "....-"},
	{'5', "....."},
	{'6', "-...."},
	{'7', "--..."},
	{'8', "---.."},
	{'9', "----."},
}

var (
	byCode = map[string]rune{}
	byChar = map[rune]string{}
)

func init() {
	for _, e := range alphabet {
		byCode[e.Code] = e.Char
		byChar[e.Char] = e.Code
	}
}

// Alphabet returns a copy of the morse table.
func Alphabet() []Entry {
	return append([]Entry(nil), alphabet[:]...)
}

// Lookup returns the character of a code. Only exact matches are found, a prefix never matches.
func Lookup(code string) (rune, bool) {
	r, ok := byCode[code]
	return r, ok
}

// Code returns the morse code of a character. Lower case letters are accepted.
func Code(r rune) (string, bool) {
	c, ok := byChar[unicode.ToUpper(r)]
	return c, ok
}
