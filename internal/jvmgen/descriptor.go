package jvmgen

import "fmt"

// SlotsOf 返回字段描述符在操作数栈上占用的槽位数
func SlotsOf(descriptor string) int {
	switch descriptor {
	case "V":
		return 0
	case "J", "D":
		return 2
	default:
		return 1
	}
}

// SplitMethodDescriptor 将方法描述符拆分为参数描述符列表与返回值描述符
func SplitMethodDescriptor(desc string) ([]string, string, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	var params []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescriptorLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	ret := desc[i+1:]
	if ret != "V" {
		n, err := fieldDescriptorLen(ret)
		if err != nil || n != len(ret) {
			return nil, "", fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
		}
	}
	return params, ret, nil
}

// ValidFieldDescriptor 判断字符串是否为单个合法的字段描述符
func ValidFieldDescriptor(desc string) bool {
	n, err := fieldDescriptorLen(desc)
	return err == nil && n == len(desc)
}

// ArgumentSlots 返回方法参数占用的槽位数 (不含 this)
func ArgumentSlots(desc string) (int, error) {
	params, _, err := SplitMethodDescriptor(desc)
	if err != nil {
		return 0, err
	}
	slots := 0
	for _, p := range params {
		slots += SlotsOf(p)
	}
	return slots, nil
}

func fieldDescriptorLen(s string) (int, error) {
	if s == "" {
		return 0, ErrBadDescriptor
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return 1, nil
	case 'L':
		for i := 1; i < len(s); i++ {
			if s[i] == ';' {
				if i == 1 {
					return 0, ErrBadDescriptor
				}
				return i + 1, nil
			}
		}
		return 0, ErrBadDescriptor
	case '[':
		n, err := fieldDescriptorLen(s[1:])
		if err != nil {
			return 0, err
		}
		return n + 1, nil
	default:
		return 0, ErrBadDescriptor
	}
}
