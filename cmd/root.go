/*
 * stream-panel is an IPTV subscription and playlist emulation service.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucasduport/stream-panel/pkg/config"
	"github.com/lucasduport/stream-panel/pkg/importer"
	"github.com/lucasduport/stream-panel/pkg/server"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stream-panel",
	Short: "IPTV subscription backend with Xtream-compatible playlist emulation",
	Long: `stream-panel manages IPTV subscribers, bouquets and content, and
exposes the playlist surface IPTV player apps expect:

- player_api.php / panel_api.php (Xtream Codes JSON dialect)
- get.php M3U playlists and xmltv.php EPG
- enigma2.php bouquet files for set-top boxes
- playback redirect endpoints with connection limits`,

	Run: func(cmd *cobra.Command, args []string) {
		log.Printf("[stream-panel] Server is starting...")

		conf := buildConfig()

		srv, err := server.NewServer(conf)
		if err != nil {
			log.Fatal(err)
		}

		wireImport(srv)

		if err := srv.Serve(); err != nil {
			log.Fatal(err)
		}
	},
}

// buildConfig assembles the panel configuration from flags, environment
// and the optional config file.
func buildConfig() *config.PanelConfig {
	conf := &config.PanelConfig{
		HostConfig: &config.HostConfiguration{
			Hostname: viper.GetString("hostname"),
			Port:     viper.GetInt("port"),
		},
		AdvertisedPort: viper.GetInt("advertised-port"),
		HTTPS:          viper.GetBool("https"),
		M3UFileName:    viper.GetString("m3u-file-name"),
		ServerTimezone: viper.GetString("timezone"),
		EPGWindow:      time.Duration(viper.GetInt("epg-window-days")) * 24 * time.Hour,
		ResolverTTL:    time.Duration(viper.GetInt("resolver-ttl-minutes")) * time.Minute,
		RedisURL:       viper.GetString("redis-url"),

		LDAPEnabled:       viper.GetBool("ldap-enabled"),
		LDAPServer:        viper.GetString("ldap-server"),
		LDAPBaseDN:        viper.GetString("ldap-base-dn"),
		LDAPBindDN:        viper.GetString("ldap-bind-dn"),
		LDAPBindPassword:  config.CredentialString(viper.GetString("ldap-bind-password")),
		LDAPUserAttribute: viper.GetString("ldap-user-attribute"),
		LDAPGroupAttr:     viper.GetString("ldap-group-attribute"),
		LDAPRequiredGroup: viper.GetString("ldap-required-group"),

		DiscordToken:     config.CredentialString(viper.GetString("discord-token")),
		DiscordChannelID: viper.GetString("discord-channel-id"),
	}

	// Use port if advertised port is not specified
	if conf.AdvertisedPort == 0 {
		conf.AdvertisedPort = conf.HostConfig.Port
	}
	return conf
}

// wireImport connects the configured import source to the internal API
// trigger.
func wireImport(srv *server.Config) {
	m3uURL := viper.GetString("import-m3u-url")
	xtreamBase := viper.GetString("import-xtream-base-url")
	xmltvURL := viper.GetString("import-xmltv-url")
	bouquet := viper.GetString("import-bouquet")

	imp := importer.New(srv.Database())

	var catalog func() error
	switch {
	case m3uURL != "":
		catalog = func() error {
			_, err := imp.ImportM3U(m3uURL, bouquet)
			return err
		}
	case xtreamBase != "":
		user := viper.GetString("import-xtream-user")
		password := viper.GetString("import-xtream-password")
		catalog = func() error {
			_, err := imp.ImportXtream(xtreamBase, user, password, bouquet)
			return err
		}
	}

	if catalog == nil && xmltvURL == "" {
		return
	}
	srv.SetImportFunc(func() error {
		if catalog != nil {
			if err := catalog(); err != nil {
				return err
			}
		}
		if xmltvURL != "" {
			if _, err := imp.ImportXMLTV(xmltvURL); err != nil {
				return err
			}
		}
		return nil
	})
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.stream-panel.yaml)")

	// Listener configuration
	rootCmd.Flags().Int("port", 8080, "Listening port")
	rootCmd.Flags().Int("advertised-port", 0, "Port to use in generated URLs (for reverse proxy)")
	rootCmd.Flags().String("hostname", "", "Hostname to use in generated URLs")
	rootCmd.Flags().BoolP("https", "", false, "Use HTTPS for generated URLs")

	// Playlist and guide output
	rootCmd.Flags().String("m3u-file-name", "playlist.m3u", "Name of the generated M3U attachment")
	rootCmd.Flags().String("timezone", "UTC", "Timezone reported in server_info")
	rootCmd.Flags().Int("epg-window-days", 7, "Days of guide data exported by xmltv.php")
	rootCmd.Flags().Int("resolver-ttl-minutes", 5, "Per-subscriber content memoization window")
	rootCmd.Flags().String("redis-url", "", "Redis URL for a shared resolver cache (optional)")

	// Import source flags
	rootCmd.Flags().String("import-m3u-url", "", "M3U playlist URL or path to import")
	rootCmd.Flags().String("import-xtream-base-url", "", "Upstream Xtream panel base URL to import")
	rootCmd.Flags().String("import-xtream-user", "", "Upstream Xtream username")
	rootCmd.Flags().String("import-xtream-password", "", "Upstream Xtream password")
	rootCmd.Flags().String("import-xmltv-url", "", "XMLTV guide URL or path to import")
	rootCmd.Flags().String("import-bouquet", "Imported", "Bouquet receiving imported content")

	// LDAP authentication flags
	rootCmd.Flags().Bool("ldap-enabled", false, "Validate passwords against LDAP")
	rootCmd.Flags().String("ldap-server", "", "LDAP server URL")
	rootCmd.Flags().String("ldap-base-dn", "", "LDAP base DN")
	rootCmd.Flags().String("ldap-bind-dn", "", "LDAP bind DN")
	rootCmd.Flags().String("ldap-bind-password", "", "LDAP bind password")
	rootCmd.Flags().String("ldap-user-attribute", "uid", "LDAP username attribute")
	rootCmd.Flags().String("ldap-group-attribute", "memberOf", "LDAP group attribute")
	rootCmd.Flags().String("ldap-required-group", "iptv", "Required LDAP group")

	// Discord notifications
	rootCmd.Flags().String("discord-token", "", "Discord bot token for notifications")
	rootCmd.Flags().String("discord-channel-id", "", "Discord channel receiving notifications")

	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		log.Fatal("Error binding PFlags to viper")
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".stream-panel")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
