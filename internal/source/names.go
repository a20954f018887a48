package source

import (
	"path/filepath"
	"strings"
)

// JavaExt is the only extension the analysis pipeline accepts.
const JavaExt = ".java"

// IsJavaFile reports whether path names a Java source file.
func IsJavaFile(path string) bool {
	return strings.HasSuffix(path, JavaExt) && filepath.Base(path) != JavaExt
}

// SimpleName returns the last segment of a dotted name.
// Examples: "java.util.List" -> "List", "Foo" -> "Foo".
func SimpleName(fqcn string) string {
	if i := strings.LastIndexByte(fqcn, '.'); i >= 0 {
		return fqcn[i+1:]
	}
	return fqcn
}

// PackageName returns everything before the last segment of a dotted name.
func PackageName(fqcn string) string {
	if i := strings.LastIndexByte(fqcn, '.'); i >= 0 {
		return fqcn[:i]
	}
	return ""
}

// Qualify joins a package and a name, tolerating the default package.
func Qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// javaLang lists the java.lang types that never need an import.
var javaLang = map[string]bool{
	"Object": true, "String": true, "StringBuilder": true, "StringBuffer": true,
	"CharSequence": true, "Boolean": true, "Byte": true, "Character": true,
	"Short": true, "Integer": true, "Long": true, "Float": true, "Double": true,
	"Number": true, "Math": true, "System": true, "Thread": true, "Runnable": true,
	"Class": true, "ClassLoader": true, "Enum": true, "Record": true, "Void": true,
	"Iterable": true, "Comparable": true, "AutoCloseable": true, "Cloneable": true,
	"Throwable": true, "Exception": true, "Error": true, "RuntimeException": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"NullPointerException": true, "IndexOutOfBoundsException": true,
	"UnsupportedOperationException": true, "ClassCastException": true,
	"ArithmeticException": true, "InterruptedException": true,
	"CloneNotSupportedException": true, "ReflectiveOperationException": true,
	"ClassNotFoundException": true, "NumberFormatException": true,
	"SecurityException": true, "StackOverflowError": true, "OutOfMemoryError": true,
	"AssertionError": true, "Deprecated": true, "Override": true,
	"SuppressWarnings": true, "FunctionalInterface": true, "SafeVarargs": true,
	"Process": true, "ProcessBuilder": true, "Runtime": true, "StrictMath": true,
	"ThreadLocal": true, "InheritableThreadLocal": true, "StackTraceElement": true,
}

// IsJavaLang reports whether the simple name resolves implicitly to java.lang.
func IsJavaLang(simple string) bool {
	return javaLang[simple]
}

var primitives = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true, "int": true,
	"long": true, "float": true, "double": true, "void": true, "var": true,
}

// IsPrimitive reports whether name is a primitive type keyword (or var/void).
func IsPrimitive(name string) bool {
	return primitives[name]
}
