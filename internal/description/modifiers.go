package description

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// ErrUnknownModifier 无法识别的修饰符名
var ErrUnknownModifier = errors.New("unknown modifier")

var modifierByName = map[string]int{
	"public":       jvmgen.AccPublic,
	"private":      jvmgen.AccPrivate,
	"protected":    jvmgen.AccProtected,
	"static":       jvmgen.AccStatic,
	"final":        jvmgen.AccFinal,
	"synchronized": jvmgen.AccSynchronized,
	"volatile":     jvmgen.AccVolatile,
	"transient":    jvmgen.AccTransient,
	"native":       jvmgen.AccNative,
	"interface":    jvmgen.AccInterface,
	"abstract":     jvmgen.AccAbstract,
	"strictfp":     jvmgen.AccStrict,
	"synthetic":    jvmgen.AccSynthetic,
	"annotation":   jvmgen.AccAnnotation,
	"enum":         jvmgen.AccEnum,
}

// ParseModifiers 将修饰符名列表合并为访问标志
func ParseModifiers(names []string) (int, error) {
	mods := 0
	for _, n := range names {
		m, ok := modifierByName[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownModifier, n)
		}
		mods |= m
	}
	return mods, nil
}

// FieldModifierNames 以字段语义列出访问标志 (0x0040 为 volatile)
func FieldModifierNames(mods int) []string {
	var names []string
	for name, m := range modifierByName {
		if name == "synchronized" || name == "native" || name == "strictfp" ||
			name == "interface" || name == "abstract" || name == "annotation" {
			continue
		}
		if mods&m != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
