package teacher

import "testing"

func Test_checkPassword(t *testing.T) {
	tests := []struct {
		name  string
		pwd   string
		uname string
		fname string
		want  string
	}{
		{name: "too short", pwd: "s3cr!t", want: pwdMinLenTag},
		{name: "short multibyte", pwd: "ééééééé", want: pwdMinLenTag},
		{name: "whitespace", pwd: "s3cure pass", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "similar to username", pwd: "Anastasia1", uname: "anastasia", want: pwdAttrSimTag},
		{name: "similar to name", pwd: "lopezana!", uname: "teacher1", fname: "Ana Lopez", want: pwdAttrSimTag},
		{name: "valid", pwd: "S3cure!pass", uname: "ana", fname: "Ana Lopez"},
		{name: "valid without attributes", pwd: "S3cure!pass"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := checkPassword(tt.pwd, tt.uname, tt.fname); got != tt.want {
				t.Errorf("checkPassword() = %q, want %q", got, tt.want)
			}
		})
	}
}
