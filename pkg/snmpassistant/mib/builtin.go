package mib

// builtinNames seeds every new Registry. Scalars carry their ".0" instance;
// table columns are registered without an index.
var builtinNames = []struct{ name, oid string }{
	{"SNMPv2-MIB::sysDescr.0", "1.3.6.1.2.1.1.1.0"},
	{"SNMPv2-MIB::sysObjectID.0", "1.3.6.1.2.1.1.2.0"},
	{"SNMPv2-MIB::sysUpTime.0", "1.3.6.1.2.1.1.3.0"},
	{"SNMPv2-MIB::sysContact.0", "1.3.6.1.2.1.1.4.0"},
	{"SNMPv2-MIB::sysName.0", "1.3.6.1.2.1.1.5.0"},
	{"SNMPv2-MIB::sysLocation.0", "1.3.6.1.2.1.1.6.0"},
	{"SNMPv2-MIB::sysServices.0", "1.3.6.1.2.1.1.7.0"},

	{"IF-MIB::ifNumber.0", "1.3.6.1.2.1.2.1.0"},
	{"IF-MIB::ifIndex", "1.3.6.1.2.1.2.2.1.1"},
	{"IF-MIB::ifDescr", "1.3.6.1.2.1.2.2.1.2"},
	{"IF-MIB::ifType", "1.3.6.1.2.1.2.2.1.3"},
	{"IF-MIB::ifMtu", "1.3.6.1.2.1.2.2.1.4"},
	{"IF-MIB::ifSpeed", "1.3.6.1.2.1.2.2.1.5"},
	{"IF-MIB::ifPhysAddress", "1.3.6.1.2.1.2.2.1.6"},
	{"IF-MIB::ifAdminStatus", "1.3.6.1.2.1.2.2.1.7"},
	{"IF-MIB::ifOperStatus", "1.3.6.1.2.1.2.2.1.8"},
	{"IF-MIB::ifInOctets", "1.3.6.1.2.1.2.2.1.10"},
	{"IF-MIB::ifOutOctets", "1.3.6.1.2.1.2.2.1.16"},
}

// builtinMibs are reported as loaded before any file is added.
var builtinMibs = []string{"SNMPv2-MIB", "IF-MIB"}
