package env

import (
	"fmt"
	"os"
	"strconv"
)

// GetString devolve o valor da variável ou o default quando ela está vazia.
func GetString(name string, defaultValue ...string) string {
	value := os.Getenv(name)
	if value == "" && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// MustGetString panics when the variable is unset or empty.
func MustGetString(name string) string {
	value := os.Getenv(name)
	if value == "" {
		panic(fmt.Sprintf("%s can't be empty", name))
	}
	return value
}

// GetInt cai no default quando o valor está ausente ou não é inteiro.
func GetInt(name string, defaultValue ...int) int {
	return parse(name, strconv.Atoi, defaultValue)
}

func GetBool(name string, defaultValue ...bool) bool {
	return parse(name, strconv.ParseBool, defaultValue)
}

func parse[T any](name string, convert func(string) (T, error), defaultValue []T) T {
	value, err := convert(os.Getenv(name))
	if err != nil && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}
