// Package corefile implements access to the memory of a stopped or running
// program: an ELF core dump (Open) or a live Linux process (OpenProcess).
//
// Both satisfy Target, which reads raw bytes at virtual addresses and
// reports the byte order and pointer size of the program. An Image can also
// resolve symbol addresses from a separate ELF file such as vmlinux.
//
// Core files are memory-mapped and each PT_LOAD segment is served by slicing
// the mapping, so reads from large kernel cores do not copy more than asked.
package corefile
